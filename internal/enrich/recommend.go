package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/llm"
	"github.com/movienighthub/movienight/internal/llm/driver"
	"github.com/movienighthub/movienight/internal/metrics"
)

const (
	maxLikedMovies      = 15
	recommendationCount = 5
	unknownTitle        = "Unknown"
)

// ErrNoMovies is returned when Recommend gets nothing to base picks on.
var ErrNoMovies = errors.New("movies are required")

// RateLimitedError reports an active provider cooldown.
type RateLimitedError struct {
	RemainingSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("ai provider rate limited, retry in %ds", e.RemainingSeconds)
}

// LikedMovie is a watchlist entry used to seed recommendations.
type LikedMovie struct {
	Title    string `json:"title"`
	Genre    string `json:"genre,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
}

// Recommendation is one suggested movie.
type Recommendation struct {
	Title     string   `json:"title"`
	Director  string   `json:"director"`
	Year      *int     `json:"year"`
	Genre     string   `json:"genre"`
	Mood      string   `json:"mood"`
	Reason    string   `json:"reason"`
	Poster    string   `json:"poster"`
	Streaming []string `json:"streaming"`
}

// Recommend asks the provider for movies similar to liked. It shares the
// cooldown with GetAIData but does not retry: a rate limit comes back as
// *RateLimitedError.
func (r *Requester) Recommend(ctx context.Context, liked []LikedMovie) ([]Recommendation, error) {
	seeds := make([]LikedMovie, 0, maxLikedMovies)
	for _, m := range liked {
		if strings.TrimSpace(m.Title) == "" {
			continue
		}
		seeds = append(seeds, m)
		if len(seeds) == maxLikedMovies {
			break
		}
	}
	if len(seeds) == 0 {
		return nil, ErrNoMovies
	}
	if r.Driver == nil {
		return nil, llm.ErrNotConfigured
	}

	if r.Tracker.IsRateLimited() {
		return nil, &RateLimitedError{RemainingSeconds: RemainingSeconds(r.Tracker.Status().Remaining)}
	}

	requestID := uuid.NewString()
	metrics.RecordEnrichmentAttempt(r.Driver.Name())
	resp, err := r.Driver.Complete(ctx, &driver.Request{
		Model:     r.Model,
		MaxTokens: r.MaxTokens,
		RequestID: requestID,
		Messages:  []driver.Message{{Role: "user", Text: RecommendationPrompt(r.catalog(), seeds, recommendationCount)}},
	})
	if err != nil {
		if perr, ok := driver.AsRateLimit(err); ok {
			cooldown := perr.RetryAfter
			if cooldown <= 0 {
				cooldown = r.cooldown()
			}
			r.Tracker.SetRateLimited(cooldown)
			metrics.SetAIRateLimited(true)
			return nil, &RateLimitedError{RemainingSeconds: RemainingSeconds(r.Tracker.Status().Remaining)}
		}
		logWarn("Recommendation provider call failed",
			zap.String("request_id", requestID),
			zap.String("error_code", llm.ErrorCode(err)),
			zap.Error(err))
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	r.Tracker.Clear()
	metrics.SetAIRateLimited(false)

	raw, err := decodeArray(resp.Text())
	if err != nil {
		logWarn("Recommendation response unparseable", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	if len(raw) > recommendationCount {
		raw = raw[:recommendationCount]
	}

	c := r.catalog()
	recs := make([]Recommendation, 0, len(raw))
	for _, item := range raw {
		fields := c.Normalize(enumField(item["genre"]), enumField(item["mood"]), stringList(item["streaming"]))
		rec := Recommendation{
			Title:     stringField(item["title"]),
			Director:  stringField(item["director"]),
			Year:      yearField(item["year"]),
			Genre:     fields.Genre,
			Mood:      fields.Mood,
			Reason:    stringField(item["reason"]),
			Poster:    stringField(item["poster"]),
			Streaming: fields.Streaming,
		}
		if rec.Title == "" {
			rec.Title = unknownTitle
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
