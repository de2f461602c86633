// Package throttle paces outbound metadata requests per upstream host using
// windows persisted in the store, so the CLI and server share one budget.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/movienighthub/movienight/internal/core"
)

// ErrLimited is returned by Acquire when the wait would exceed MaxWait.
var ErrLimited = errors.New("upstream rate limited")

// RateLimiter enforces per-endpoint request windows.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64

	// MaxWait bounds how long Acquire sleeps for a window to reopen.
	MaxWait time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore stores rate limit state.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// DefaultLimits stays under the published free-tier quotas.
var DefaultLimits = map[string]RateLimit{
	"api.themoviedb.org": {RequestsPerWindow: 40, WindowDuration: 10 * time.Second},
	"www.omdbapi.com":    {RequestsPerWindow: 1000, WindowDuration: 24 * time.Hour},
}

// EndpointFor returns the limiter key (host name) for a base URL.
func EndpointFor(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Allow checks if a request is allowed and returns wait duration if not.
func (r *RateLimiter) Allow(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}

	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}
	now := r.now()
	if state == nil {
		state = core.NewRateLimitState(now)
	}

	if wait, ok := state.BackedOff(now); ok {
		return false, wait, nil
	}

	limit := r.getLimit(endpoint)
	state.Rollover(now, limit.WindowDuration)
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, state.WindowEnd(limit.WindowDuration).Sub(now), nil
	}

	return true, 0, nil
}

// Acquire waits (up to MaxWait) for the endpoint window and records the
// request. A nil limiter or empty endpoint always succeeds.
func (r *RateLimiter) Acquire(ctx context.Context, endpoint string) error {
	if r == nil || r.Store == nil || endpoint == "" {
		return nil
	}

	allowed, wait, err := r.Allow(ctx, endpoint)
	if err != nil {
		return err
	}
	if !allowed {
		if wait > r.MaxWait {
			return fmt.Errorf("%w: %s, retry in %s", ErrLimited, endpoint, wait.Round(time.Second))
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return r.Record(ctx, endpoint)
}

// Record increments the request count for an endpoint, opening a new window
// when the previous one has elapsed.
func (r *RateLimiter) Record(ctx context.Context, endpoint string) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return err
	}
	now := r.now()
	if state == nil {
		state = core.NewRateLimitState(now)
	}
	state.Rollover(now, r.getLimit(endpoint).WindowDuration)
	state.RequestCount++

	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Record429 applies a backoff window from a 429 response.
func (r *RateLimiter) Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return err
	}
	now := r.now()
	if state == nil {
		state = core.NewRateLimitState(now)
	}
	state.NoteThrottled(now, retryAfter)

	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// ApplyOverrides merges per-endpoint request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits))
		for key, limit := range DefaultLimits {
			r.Limits[key] = limit
		}
	}

	for endpoint, value := range overrides {
		endpoint = strings.ToLower(strings.TrimSpace(endpoint))
		if endpoint == "" || value <= 0 {
			continue
		}
		r.Limits[endpoint] = RateLimit{
			RequestsPerWindow: value,
			WindowDuration:    time.Minute,
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) getLimit(endpoint string) RateLimit {
	if r == nil {
		return RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute}
	}

	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	if limit, ok := limits[endpoint]; ok {
		return r.applyMargin(limit)
	}

	return r.applyMargin(RateLimit{RequestsPerWindow: 30, WindowDuration: time.Minute})
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r == nil || r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * r.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}
