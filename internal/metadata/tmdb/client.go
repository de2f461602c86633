// Package tmdb is a small client for The Movie Database v3 API.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/core"
	"github.com/movienighthub/movienight/internal/metadata"
	"github.com/movienighthub/movienight/internal/observability"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	searchLimit   = 10
	trendingLimit = 20
	similarLimit  = 10
	castLimit     = 5

	searchOverviewLen  = 100
	similarOverviewLen = 150

	WindowDay  = "day"
	WindowWeek = "week"
)

var (
	yearPattern      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	yearStripPattern = regexp.MustCompile(`\(?\b(19|20)\d{2}\b\)?`)
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("TMDB API key not configured")

// Client wraps the TMDB endpoints the hub uses.
type Client struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Fetcher      *metadata.Fetcher
}

// New returns a client with defaults applied.
func New(apiKey, baseURL, imageBaseURL string, fetcher *metadata.Fetcher) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(imageBaseURL) == "" {
		imageBaseURL = DefaultImageBaseURL
	}
	if fetcher == nil {
		fetcher = &metadata.Fetcher{}
	}
	if fetcher.Provider == "" {
		fetcher.Provider = "tmdb"
	}
	if fetcher.Namespace == "" {
		fetcher.Namespace = cache.NamespaceTMDB
	}
	return &Client{
		APIKey:       strings.TrimSpace(apiKey),
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ImageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		Fetcher:      fetcher,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.APIKey != ""
}

// ExtractYear pulls a release year out of free text such as "Cold War 2018"
// or "Cold War (2018)" and returns the remaining title.
func ExtractYear(query string) (string, *int) {
	match := yearPattern.FindString(query)
	if match == "" {
		return strings.TrimSpace(query), nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return strings.TrimSpace(query), nil
	}
	cleaned := strings.Join(strings.Fields(yearStripPattern.ReplaceAllString(query, "")), " ")
	if cleaned == "" {
		// The query was only a year; search for it literally.
		return strings.TrimSpace(query), &year
	}
	return cleaned, &year
}

// Search runs a title search and returns the top results.
func (c *Client) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	title, year := ExtractYear(query)
	if title == "" {
		return nil, errors.New("query is required")
	}

	page, err := c.search(ctx, title, year)
	if err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, 0, searchLimit)
	for _, m := range limit(page.Results, searchLimit) {
		results = append(results, core.SearchResult{
			TMDBID:   m.ID,
			Title:    m.Title,
			Year:     releaseYear(m.ReleaseDate),
			Poster:   c.image("w200", m.PosterPath),
			Overview: truncate(m.Overview, searchOverviewLen),
		})
	}
	return results, nil
}

// Details resolves poster, rating, trailer and top cast for the best match
// of title/year. Video and credit lookups that fail leave their fields empty.
func (c *Client) Details(ctx context.Context, title string, year *int) (core.MovieDetails, error) {
	details := core.EmptyDetails()
	if !c.Configured() {
		return details, ErrNotConfigured
	}

	page, err := c.search(ctx, title, year)
	if err != nil {
		return details, err
	}
	if len(page.Results) == 0 {
		return details, metadata.ErrNotFound
	}

	best := page.Results[0]
	details.TMDBID = best.ID
	details.Title = best.Title
	details.Year = releaseYear(best.ReleaseDate)
	details.Poster = c.image("w500", best.PosterPath)
	if best.VoteAverage > 0 {
		rating := best.VoteAverage
		details.TMDBRating = &rating
	}

	var (
		wg      sync.WaitGroup
		videos  videoList
		credits creditList
		vErr    error
		cErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		vErr = c.get(ctx, fmt.Sprintf("/movie/%d/videos", best.ID), nil, cache.Key("videos", strconv.Itoa(best.ID)), &videos)
	}()
	go func() {
		defer wg.Done()
		cErr = c.get(ctx, fmt.Sprintf("/movie/%d/credits", best.ID), nil, cache.Key("credits", strconv.Itoa(best.ID)), &credits)
	}()
	wg.Wait()

	if vErr == nil {
		details.TrailerURL = trailerURL(videos.Results)
	}
	if cErr == nil {
		for _, member := range limit(credits.Cast, castLimit) {
			details.Cast = append(details.Cast, member.Name)
		}
	}
	if err := errors.Join(vErr, cErr); err != nil {
		if logger := observability.Active(); logger != nil {
			logger.Warn("Partial TMDB details", zap.Int("tmdb_id", best.ID), zap.Error(err))
		}
	}

	return details, nil
}

// Poster returns the w500 poster of the best match, or "" when there is none.
func (c *Client) Poster(ctx context.Context, title string, year *int) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	page, err := c.search(ctx, title, year)
	if err != nil {
		return "", err
	}
	if len(page.Results) == 0 {
		return "", nil
	}
	return c.image("w500", page.Results[0].PosterPath), nil
}

// NormalizeWindow maps anything other than "day" to "week".
func NormalizeWindow(window string) string {
	if strings.EqualFold(strings.TrimSpace(window), WindowDay) {
		return WindowDay
	}
	return WindowWeek
}

// Trending lists trending movies for the day or week window.
func (c *Client) Trending(ctx context.Context, window string) ([]core.TrendingMovie, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	window = NormalizeWindow(window)

	var page moviePage
	if err := c.get(ctx, "/trending/movie/"+window, nil, cache.Key("trending", window), &page); err != nil {
		return nil, err
	}

	movies := make([]core.TrendingMovie, 0, trendingLimit)
	for _, m := range limit(page.Results, trendingLimit) {
		movies = append(movies, core.TrendingMovie{
			TMDBID:     m.ID,
			Title:      m.Title,
			Year:       releaseYear(m.ReleaseDate),
			Poster:     c.image("w300", m.PosterPath),
			Backdrop:   c.image("w780", m.BackdropPath),
			Overview:   m.Overview,
			Rating:     m.VoteAverage,
			Popularity: m.Popularity,
		})
	}
	return movies, nil
}

// Similar finds the best match for title/year and lists similar movies.
// It returns metadata.ErrNotFound when the title itself is unknown.
func (c *Client) Similar(ctx context.Context, title string, year *int) ([]core.SimilarMovie, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	page, err := c.search(ctx, title, year)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, metadata.ErrNotFound
	}

	id := page.Results[0].ID
	var similar moviePage
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/similar", id), nil, cache.Key("similar", strconv.Itoa(id)), &similar); err != nil {
		return nil, err
	}

	movies := make([]core.SimilarMovie, 0, similarLimit)
	for _, m := range limit(similar.Results, similarLimit) {
		movies = append(movies, core.SimilarMovie{
			TMDBID:   m.ID,
			Title:    m.Title,
			Year:     releaseYear(m.ReleaseDate),
			Poster:   c.image("w200", m.PosterPath),
			Rating:   m.VoteAverage,
			Overview: truncate(m.Overview, similarOverviewLen),
		})
	}
	return movies, nil
}

func (c *Client) search(ctx context.Context, title string, year *int) (*moviePage, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("page", "1")
	yearKey := ""
	if year != nil {
		yearKey = strconv.Itoa(*year)
		params.Set("year", yearKey)
	}

	var page moviePage
	if err := c.get(ctx, "/search/movie", params, cache.Key("search", title, yearKey), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, cacheKey string, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.APIKey)
	return c.Fetcher.GetJSON(ctx, cacheKey, c.BaseURL+path+"?"+params.Encode(), out)
}

func (c *Client) image(size, path string) string {
	if path == "" {
		return ""
	}
	return c.ImageBaseURL + "/" + size + path
}

func trailerURL(videos []video) string {
	for _, v := range videos {
		if v.Type == "Trailer" && v.Site == "YouTube" {
			return "https://www.youtube.com/watch?v=" + v.Key
		}
	}
	for _, v := range videos {
		if v.Site == "YouTube" {
			return "https://www.youtube.com/watch?v=" + v.Key
		}
	}
	return ""
}

func releaseYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}

// truncate cuts overview text to n runes and marks it as abridged.
func truncate(text string, n int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
