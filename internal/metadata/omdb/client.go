// Package omdb fetches critic ratings from the OMDb API.
package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/core"
	"github.com/movienighthub/movienight/internal/metadata"
)

const (
	DefaultBaseURL = "https://www.omdbapi.com"

	sourceRottenTomatoes = "Rotten Tomatoes"
	sourceMetacritic     = "Metacritic"
	notAvailable         = "N/A"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("OMDb API key not configured")

// Client looks up titles by name and optional year.
type Client struct {
	APIKey  string
	BaseURL string
	Fetcher *metadata.Fetcher
}

type titleResponse struct {
	Response   string   `json:"Response"`
	Error      string   `json:"Error"`
	IMDBID     string   `json:"imdbID"`
	IMDBRating string   `json:"imdbRating"`
	Metascore  string   `json:"Metascore"`
	Runtime    string   `json:"Runtime"`
	Rated      string   `json:"Rated"`
	Ratings    []rating `json:"Ratings"`
}

type rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// New returns a client with defaults applied.
func New(apiKey, baseURL string, fetcher *metadata.Fetcher) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if fetcher == nil {
		fetcher = &metadata.Fetcher{}
	}
	if fetcher.Provider == "" {
		fetcher.Provider = "omdb"
	}
	if fetcher.Namespace == "" {
		fetcher.Namespace = cache.NamespaceOMDB
	}
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		Fetcher: fetcher,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.APIKey != ""
}

// Ratings returns IMDb, Rotten Tomatoes and Metacritic scores for a title.
// OMDb's "N/A" placeholders come back as empty strings.
func (c *Client) Ratings(ctx context.Context, title string, year *int) (core.Ratings, error) {
	if !c.Configured() {
		return core.Ratings{}, ErrNotConfigured
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return core.Ratings{}, errors.New("title is required")
	}

	params := url.Values{}
	params.Set("apikey", c.APIKey)
	params.Set("t", title)
	params.Set("type", "movie")
	yearKey := ""
	if year != nil {
		yearKey = strconv.Itoa(*year)
		params.Set("y", yearKey)
	}

	var resp titleResponse
	if err := c.Fetcher.GetJSON(ctx, cache.Key(title, yearKey), c.BaseURL+"/?"+params.Encode(), &resp); err != nil {
		return core.Ratings{}, err
	}
	if !strings.EqualFold(resp.Response, "true") {
		if strings.Contains(strings.ToLower(resp.Error), "not found") {
			return core.Ratings{}, metadata.ErrNotFound
		}
		return core.Ratings{}, fmt.Errorf("omdb: %s", resp.Error)
	}

	out := core.Ratings{
		IMDBID:     clean(resp.IMDBID),
		IMDBRating: clean(resp.IMDBRating),
		Runtime:    clean(resp.Runtime),
		Rated:      clean(resp.Rated),
	}
	for _, r := range resp.Ratings {
		switch r.Source {
		case sourceRottenTomatoes:
			out.RottenTomatoes = clean(r.Value)
		case sourceMetacritic:
			out.Metacritic = clean(r.Value)
		}
	}
	if out.Metacritic == "" && clean(resp.Metascore) != "" {
		out.Metacritic = resp.Metascore + "/100"
	}
	return out, nil
}

func clean(value string) string {
	value = strings.TrimSpace(value)
	if value == notAvailable {
		return ""
	}
	return value
}
