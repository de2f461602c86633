// Package enrich derives genre, mood and streaming availability for a movie
// from an LLM, honoring the shared provider cooldown.
package enrich

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/catalog"
	"github.com/movienighthub/movienight/internal/llm"
	"github.com/movienighthub/movienight/internal/llm/driver"
	"github.com/movienighthub/movienight/internal/metrics"
	"github.com/movienighthub/movienight/internal/observability"
	"github.com/movienighthub/movienight/internal/ratelimit"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
	DefaultCacheTTL   = 24 * time.Hour

	webSearchTool = "web_search_20250305"
)

// Result is the outcome of one logical enrichment. It never carries an
// error: callers treat a nil Data as "enrichment unavailable now".
type Result struct {
	Success     bool `json:"success"`
	RateLimited bool `json:"rateLimited"`
	// RemainingSeconds is set when RateLimited.
	RemainingSeconds *int            `json:"remainingSeconds,omitempty"`
	Data             *catalog.Fields `json:"data"`

	// Hints the model returned alongside the fields.
	Title    string `json:"title,omitempty"`
	Director string `json:"director,omitempty"`
	Year     *int   `json:"year,omitempty"`

	Cached bool `json:"cached,omitempty"`
}

// Options tunes a single GetAIData call.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Option overrides a default in Options.
type Option func(*Options)

// WithMaxRetries sets how many times a rate-limited call is retried.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

// WithRetryDelay sets the fixed delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.RetryDelay = d
		}
	}
}

// Requester performs enrichment calls against one provider.
type Requester struct {
	Driver    driver.Driver
	Model     string
	MaxTokens int
	WebSearch bool

	Tracker *ratelimit.Tracker
	Catalog *catalog.Catalog

	Cache    cache.Backend
	CacheTTL time.Duration

	MaxRetries int
	RetryDelay time.Duration
	// Cooldown is applied when the provider sends no retry-after hint.
	Cooldown time.Duration

	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRequester wires a resolved provider to the shared tracker. A nil
// tracker gets a private one.
func NewRequester(resolved *llm.Resolved, tracker *ratelimit.Tracker) *Requester {
	if tracker == nil {
		tracker = ratelimit.New()
	}
	r := &Requester{
		Tracker:    tracker,
		Catalog:    catalog.Default(),
		CacheTTL:   DefaultCacheTTL,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Cooldown:   ratelimit.DefaultCooldown,
	}
	if resolved != nil {
		r.Driver = resolved.Driver
		r.Model = resolved.Model
		r.MaxTokens = resolved.MaxTokens
		r.WebSearch = resolved.WebSearch
	}
	return r
}

// GetAIData enriches title. Order of checks: tracker (fail fast), result
// cache, then up to 1+MaxRetries provider calls spaced by RetryDelay
// while the provider keeps signalling rate limits.
func (r *Requester) GetAIData(ctx context.Context, title string, opts ...Option) Result {
	started := time.Now()
	options := Options{MaxRetries: r.MaxRetries, RetryDelay: r.RetryDelay}
	for _, opt := range opts {
		opt(&options)
	}

	if title == "" || r.Driver == nil {
		return r.finish(Result{}, metrics.OutcomeFailed, started)
	}

	if r.Tracker.IsRateLimited() {
		return r.finish(r.rateLimited(), metrics.OutcomeRateLimited, started)
	}

	if cached, ok := r.cached(ctx, title); ok {
		return r.finish(cached, metrics.OutcomeCached, started)
	}

	requestID := uuid.NewString()
	req := r.buildRequest(title, requestID)

	for attempt := 0; ; attempt++ {
		metrics.RecordEnrichmentAttempt(r.Driver.Name())
		resp, err := r.Driver.Complete(ctx, req)
		if err == nil {
			result, parseErr := r.parse(resp.Text())
			if parseErr != nil {
				logWarn("Enrichment response unparseable",
					zap.String("request_id", requestID),
					zap.String("title", title),
					zap.Error(parseErr))
				return r.finish(Result{}, metrics.OutcomeFailed, started)
			}
			r.Tracker.Clear()
			metrics.SetAIRateLimited(false)
			r.store(ctx, title, result)
			return r.finish(result, metrics.OutcomeSuccess, started)
		}

		perr, limited := driver.AsRateLimit(err)
		if !limited {
			logWarn("Enrichment provider call failed",
				zap.String("request_id", requestID),
				zap.String("title", title),
				zap.String("error_code", llm.ErrorCode(err)),
				zap.Error(err))
			return r.finish(Result{}, metrics.OutcomeFailed, started)
		}

		cooldown := perr.RetryAfter
		if cooldown <= 0 {
			cooldown = r.cooldown()
		}
		r.Tracker.SetRateLimited(cooldown)
		metrics.SetAIRateLimited(true)

		logInfo("Enrichment provider rate limited",
			zap.String("request_id", requestID),
			zap.String("title", title),
			zap.Int("attempt", attempt+1),
			zap.Duration("cooldown", cooldown))

		if attempt >= options.MaxRetries {
			break
		}
		if err := r.sleep(ctx, options.RetryDelay); err != nil {
			break
		}
	}

	return r.finish(r.rateLimited(), metrics.OutcomeRateLimited, started)
}

func (r *Requester) buildRequest(title, requestID string) *driver.Request {
	req := &driver.Request{
		Model:     r.Model,
		MaxTokens: r.MaxTokens,
		RequestID: requestID,
		Messages:  []driver.Message{{Role: "user", Text: MoviePrompt(r.catalog(), title)}},
	}
	if r.WebSearch {
		req.Tools = []driver.Tool{{Type: webSearchTool, Name: "web_search"}}
	}
	if r.Driver.Capabilities().SupportsJSONMode {
		req.JSONOutput = true
	}
	return req
}

func (r *Requester) parse(text string) (Result, error) {
	raw, err := decodeObject(text)
	if err != nil {
		return Result{}, err
	}

	fields := r.catalog().Normalize(enumField(raw["genre"]), enumField(raw["mood"]), stringList(raw["streaming"]))
	return Result{
		Success:  true,
		Data:     &fields,
		Title:    stringField(raw["title"]),
		Director: stringField(raw["director"]),
		Year:     yearField(raw["year"]),
	}, nil
}

func (r *Requester) rateLimited() Result {
	seconds := RemainingSeconds(r.Tracker.Status().Remaining)
	return Result{RateLimited: true, RemainingSeconds: &seconds}
}

// RemainingSeconds rounds a cooldown up to whole seconds.
func RemainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func (r *Requester) cached(ctx context.Context, title string) (Result, bool) {
	if r.Cache == nil || r.CacheTTL <= 0 {
		return Result{}, false
	}
	body, ok, err := r.Cache.Get(ctx, cache.NamespaceEnrichment, cache.Key(title))
	if err != nil {
		logWarn("Enrichment cache read failed", zap.String("title", title), zap.Error(err))
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(body, &result); err != nil || result.Data == nil {
		return Result{}, false
	}
	result.Success = true
	result.Cached = true
	return result, true
}

func (r *Requester) store(ctx context.Context, title string, result Result) {
	if r.Cache == nil || r.CacheTTL <= 0 {
		return
	}
	body, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, cache.NamespaceEnrichment, cache.Key(title), body, r.CacheTTL); err != nil {
		logWarn("Enrichment cache write failed", zap.String("title", title), zap.Error(err))
	}
}

func (r *Requester) finish(result Result, outcome string, started time.Time) Result {
	metrics.RecordEnrichment(outcome, time.Since(started))
	return result
}

func (r *Requester) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
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

func (r *Requester) catalog() *catalog.Catalog {
	if r.Catalog == nil {
		return catalog.Default()
	}
	return r.Catalog
}

func (r *Requester) cooldown() time.Duration {
	if r.Cooldown > 0 {
		return r.Cooldown
	}
	return ratelimit.DefaultCooldown
}

func logInfo(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Info(msg, fields...)
	}
}

func logWarn(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Warn(msg, fields...)
	}
}
