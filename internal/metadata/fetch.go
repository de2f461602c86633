// Package metadata holds the deterministic movie metadata providers (TMDB and
// OMDb) and the paced, cached HTTP fetcher they share.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/core/throttle"
	"github.com/movienighthub/movienight/internal/llm/driver"
	"github.com/movienighthub/movienight/internal/observability"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// ErrNotFound reports that the provider had no match for a title.
var ErrNotFound = errors.New("movie not found")

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// Fetcher performs GET requests against one provider. Responses are cached
// raw under Namespace; outbound calls pass through Limiter.
type Fetcher struct {
	Provider   string
	Namespace  string
	HTTPClient *http.Client
	Limiter    *throttle.RateLimiter
	Cache      cache.Backend
	CacheTTL   time.Duration
	Clock      func() time.Time
}

// GetJSON decodes the body of rawURL into out. An empty cacheKey bypasses the
// cache. rawURL may carry an API key and is never logged.
func (f *Fetcher) GetJSON(ctx context.Context, cacheKey, rawURL string, out any) error {
	if f == nil {
		return errors.New("metadata fetcher not configured")
	}

	if body, ok := f.cached(ctx, cacheKey); ok {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
	}

	endpoint := throttle.EndpointFor(rawURL)
	if err := f.Limiter.Acquire(ctx, endpoint); err != nil {
		return fmt.Errorf("%s: %w", f.Provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", f.Provider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", f.Provider, redact(err))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", f.Provider, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &StatusError{Provider: f.Provider, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr.RetryAfter = driver.ParseRetryAfter(resp.Header.Get("Retry-After"), f.now())
			if statusErr.RetryAfter > 0 {
				_ = f.Limiter.Record429(ctx, endpoint, statusErr.RetryAfter)
			}
		}
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", f.Provider, err)
	}

	f.store(ctx, cacheKey, body)
	return nil
}

func (f *Fetcher) cached(ctx context.Context, key string) ([]byte, bool) {
	if f.Cache == nil || key == "" || f.CacheTTL <= 0 {
		return nil, false
	}
	body, ok, err := f.Cache.Get(ctx, f.Namespace, key)
	if err != nil {
		if logger := observability.Active(); logger != nil {
			logger.Warn("Metadata cache read failed", zap.String("provider", f.Provider), zap.Error(err))
		}
		return nil, false
	}
	return body, ok
}

func (f *Fetcher) store(ctx context.Context, key string, body []byte) {
	if f.Cache == nil || key == "" || f.CacheTTL <= 0 {
		return
	}
	if err := f.Cache.Set(ctx, f.Namespace, key, body, f.CacheTTL); err != nil {
		if logger := observability.Active(); logger != nil {
			logger.Warn("Metadata cache write failed", zap.String("provider", f.Provider), zap.Error(err))
		}
	}
}

func (f *Fetcher) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (f *Fetcher) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now().UTC()
}

// redact drops the request URL (which carries the API key) from transport
// errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
