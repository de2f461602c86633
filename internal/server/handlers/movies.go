package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/core"
	"github.com/movienighthub/movienight/internal/enrich"
	apperrors "github.com/movienighthub/movienight/internal/errors"
	"github.com/movienighthub/movienight/internal/metadata"
	"github.com/movienighthub/movienight/internal/observability"
	"github.com/movienighthub/movienight/internal/ratelimit"
)

const maxBodyBytes = 1 << 20

// Enricher is the AI side of the movie endpoints.
type Enricher interface {
	GetAIData(ctx context.Context, title string, opts ...enrich.Option) enrich.Result
	Recommend(ctx context.Context, liked []enrich.LikedMovie) ([]enrich.Recommendation, error)
}

// StatusSource reports the AI provider cooldown.
type StatusSource interface {
	Status() ratelimit.Status
}

// MovieCatalog is the TMDB side of the movie endpoints.
type MovieCatalog interface {
	Configured() bool
	Search(ctx context.Context, query string) ([]core.SearchResult, error)
	Details(ctx context.Context, title string, year *int) (core.MovieDetails, error)
	Poster(ctx context.Context, title string, year *int) (string, error)
	Trending(ctx context.Context, window string) ([]core.TrendingMovie, error)
	Similar(ctx context.Context, title string, year *int) ([]core.SimilarMovie, error)
}

// RatingsSource supplies critic ratings.
type RatingsSource interface {
	Configured() bool
	Ratings(ctx context.Context, title string, year *int) (core.Ratings, error)
}

// Movies serves the enrichment and metadata endpoints. Any dependency may be
// nil; the affected endpoints then report that they are not configured.
type Movies struct {
	AI      Enricher
	Status  StatusSource
	TMDB    MovieCatalog
	Ratings RatingsSource
}

type statusResponse struct {
	AIAvailable      bool   `json:"ai_available"`
	RetryAfter       *int64 `json:"retry_after"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type searchMovieRequest struct {
	Title    any                `json:"title"`
	AIOnly   bool               `json:"aiOnly"`
	TMDBData *core.MovieDetails `json:"tmdbData"`
}

type aiFieldsResponse struct {
	Genre     string   `json:"genre"`
	Mood      string   `json:"mood"`
	Streaming []string `json:"streaming"`
}

type movieResponse struct {
	Title          string   `json:"title"`
	Director       string   `json:"director"`
	Year           *int     `json:"year"`
	Genre          string   `json:"genre"`
	Mood           string   `json:"mood"`
	Streaming      []string `json:"streaming"`
	Poster         string   `json:"poster"`
	TrailerURL     string   `json:"trailer_url"`
	TMDBRating     *float64 `json:"tmdb_rating"`
	Cast           []string `json:"cast"`
	IMDBRating     string   `json:"imdb_rating,omitempty"`
	RottenTomatoes string   `json:"rotten_tomatoes,omitempty"`
	Metacritic     string   `json:"metacritic,omitempty"`
	Runtime        string   `json:"runtime,omitempty"`

	AIPending         bool `json:"ai_pending"`
	RetryAfterSeconds *int `json:"retry_after_seconds,omitempty"`
}

// AIStatus handles GET /ai-status.
func (m *Movies) AIStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	resp := statusResponse{AIAvailable: true}
	if m.Status != nil {
		status := m.Status.Status()
		resp.AIAvailable = status.Available
		if !status.Available && status.RetryAfter != nil {
			ms := status.RetryAfter.UnixMilli()
			resp.RetryAfter = &ms
			resp.RemainingSeconds = enrich.RemainingSeconds(status.Remaining)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SearchMovie handles POST /search-movie in AI-only or full mode.
func (m *Movies) SearchMovie(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req searchMovieRequest
	if !decodeBody(w, r, &req) {
		return
	}
	title, ok := req.Title.(string)
	if !ok || title == "" {
		respondMessage(w, r, apperrors.NewInvalidInputError("Movie title is required"), nil)
		return
	}
	if m.AI == nil {
		respondMessage(w, r, apperrors.NewNotConfiguredError("AI provider API key not configured"), nil)
		return
	}

	result := m.AI.GetAIData(r.Context(), title)

	if req.AIOnly {
		switch {
		case result.Success && result.Data != nil:
			writeJSON(w, http.StatusOK, aiFieldsResponse{
				Genre:     result.Data.Genre,
				Mood:      result.Data.Mood,
				Streaming: nonNil(result.Data.Streaming),
			})
		case result.RateLimited:
			seconds := remaining(result)
			respondMessage(w, r, apperrors.NewRateLimitedError("AI temporarily unavailable", seconds),
				map[string]interface{}{"retry_after_seconds": seconds})
		default:
			respondMessage(w, r, apperrors.NewServiceUnavailableError("Could not get AI data"), nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, m.fullMovie(r.Context(), title, req.TMDBData, result))
}

// fullMovie merges AI fields with TMDB details and OMDb ratings. Metadata
// failures leave their fields empty; the movie is still returned.
func (m *Movies) fullMovie(ctx context.Context, title string, provided *core.MovieDetails, ai enrich.Result) movieResponse {
	resp := movieResponse{
		Title:     title,
		Director:  ai.Director,
		Year:      ai.Year,
		Streaming: []string{},
		Cast:      []string{},
	}
	if ai.Title != "" {
		resp.Title = ai.Title
	}
	if ai.Success && ai.Data != nil {
		resp.Genre = ai.Data.Genre
		resp.Mood = ai.Data.Mood
		resp.Streaming = nonNil(ai.Data.Streaming)
	} else {
		resp.AIPending = true
		seconds := 0
		if ai.RateLimited {
			seconds = remaining(ai)
		}
		resp.RetryAfterSeconds = &seconds
	}

	details := core.EmptyDetails()
	switch {
	case provided != nil:
		details = *provided
	case m.TMDB != nil && m.TMDB.Configured():
		fetched, err := m.TMDB.Details(ctx, resp.Title, resp.Year)
		if err != nil && !errors.Is(err, metadata.ErrNotFound) {
			logWarn("TMDB details lookup failed", zap.String("title", resp.Title), zap.Error(err))
		}
		details = fetched
	}
	resp.Poster = details.Poster
	resp.TrailerURL = details.TrailerURL
	resp.TMDBRating = details.TMDBRating
	resp.Cast = nonNil(details.Cast)
	if resp.Year == nil {
		resp.Year = details.Year
	}

	if m.Ratings != nil && m.Ratings.Configured() {
		ratings, err := m.Ratings.Ratings(ctx, resp.Title, resp.Year)
		if err != nil && !errors.Is(err, metadata.ErrNotFound) {
			logWarn("OMDb ratings lookup failed", zap.String("title", resp.Title), zap.Error(err))
		}
		resp.IMDBRating = ratings.IMDBRating
		resp.RottenTomatoes = ratings.RottenTomatoes
		resp.Metacritic = ratings.Metacritic
		resp.Runtime = ratings.Runtime
	}

	return resp
}

// SearchTMDB handles POST /search-tmdb.
func (m *Movies) SearchTMDB(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Query any `json:"query"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	query, ok := req.Query.(string)
	if !ok || strings.TrimSpace(query) == "" {
		respondMessage(w, r, apperrors.NewInvalidInputError("Search query is required"), nil)
		return
	}
	if !m.tmdbConfigured(w, r) {
		return
	}

	results, err := m.TMDB.Search(r.Context(), query)
	if err != nil {
		respondMessage(w, r, upstreamError(r.Context(), err, "Failed to search TMDB"), nil)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

// Trending handles GET /trending?window=day|week.
func (m *Movies) Trending(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if !m.tmdbConfigured(w, r) {
		return
	}

	window := normalizeWindow(r.URL.Query().Get("window"))
	movies, err := m.TMDB.Trending(r.Context(), window)
	if err != nil {
		respondMessage(w, r, upstreamError(r.Context(), err, "Failed to fetch trending movies"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"movies":     nonNil(movies),
		"timeWindow": window,
	})
}

// Similar handles POST /similar.
func (m *Movies) Similar(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Title any `json:"title"`
		Year  any `json:"year"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	title, _ := req.Title.(string)
	if strings.TrimSpace(title) == "" {
		respondMessage(w, r, apperrors.NewInvalidInputError("Movie title is required"), nil)
		return
	}
	if !m.tmdbConfigured(w, r) {
		return
	}

	similar, err := m.TMDB.Similar(r.Context(), title, parseYear(req.Year))
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		respondMessage(w, r, apperrors.NewNotFoundError("Movie not found"),
			map[string]interface{}{"similar": []core.SimilarMovie{}})
		return
	case err != nil:
		respondMessage(w, r, upstreamError(r.Context(), err, "Failed to fetch similar movies"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"similar": nonNil(similar)})
}

// Recommendations handles POST /recommendations.
func (m *Movies) Recommendations(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Movies []enrich.LikedMovie `json:"movies"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Movies == nil {
		respondMessage(w, r, apperrors.NewInvalidInputError("Movies array is required"), nil)
		return
	}
	if m.AI == nil {
		respondMessage(w, r, apperrors.NewNotConfiguredError("AI provider API key not configured"), nil)
		return
	}

	recs, err := m.AI.Recommend(r.Context(), req.Movies)
	var limited *enrich.RateLimitedError
	switch {
	case errors.As(err, &limited):
		respondMessage(w, r, apperrors.NewRateLimitedError("AI temporarily unavailable", limited.RemainingSeconds),
			map[string]interface{}{"retry_after_seconds": limited.RemainingSeconds})
		return
	case errors.Is(err, enrich.ErrNoMovies):
		respondMessage(w, r, apperrors.NewInvalidInputError("Movies array is required"), nil)
		return
	case err != nil:
		respondMessage(w, r, apperrors.WrapInternal(r.Context(), err, "Failed to get recommendations"), nil)
		return
	}

	m.attachPosters(r.Context(), recs)
	writeJSON(w, http.StatusOK, nonNil(recs))
}

func (m *Movies) attachPosters(ctx context.Context, recs []enrich.Recommendation) {
	if m.TMDB == nil || !m.TMDB.Configured() {
		return
	}
	var wg sync.WaitGroup
	for i := range recs {
		wg.Add(1)
		go func(rec *enrich.Recommendation) {
			defer wg.Done()
			poster, err := m.TMDB.Poster(ctx, rec.Title, rec.Year)
			if err != nil {
				logWarn("TMDB poster lookup failed", zap.String("title", rec.Title), zap.Error(err))
				return
			}
			rec.Poster = poster
		}(&recs[i])
	}
	wg.Wait()
}

func (m *Movies) tmdbConfigured(w http.ResponseWriter, r *http.Request) bool {
	if m.TMDB == nil || !m.TMDB.Configured() {
		respondMessage(w, r, apperrors.NewNotConfiguredError("TMDB API key not configured"), nil)
		return false
	}
	return true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	respondMessage(w, r, apperrors.NewMethodNotAllowedError("Method not allowed"), nil)
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(out); err != nil {
		respondMessage(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid JSON body"), nil)
		return false
	}
	return true
}

// upstreamError classifies a metadata provider failure: timeouts are 504,
// provider error statuses 502, anything else 500.
func upstreamError(ctx context.Context, err error, message string) error {
	var status *metadata.StatusError
	var timeout interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &timeout) && timeout.Timeout():
		return apperrors.WrapTimeout(ctx, err, message)
	case errors.As(err, &status):
		return apperrors.WrapExternalService(ctx, err, message)
	default:
		return apperrors.WrapInternal(ctx, err, message)
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

func respondMessage(w http.ResponseWriter, r *http.Request, err error, extra map[string]interface{}) {
	apperrors.RespondWithMessage(w, r, apperrors.EnsureEnvelope(err), extra)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func remaining(result enrich.Result) int {
	if result.RemainingSeconds != nil {
		return *result.RemainingSeconds
	}
	return 0
}

func normalizeWindow(window string) string {
	if strings.EqualFold(strings.TrimSpace(window), "day") {
		return "day"
	}
	return "week"
}

// parseYear accepts a JSON number or numeric string.
func parseYear(v any) *int {
	var year int
	switch value := v.(type) {
	case float64:
		year = int(value)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil
		}
		year = parsed
	default:
		return nil
	}
	if year <= 0 {
		return nil
	}
	return &year
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func logWarn(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Warn(msg, fields...)
	}
}
