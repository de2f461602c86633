package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/config"
	"github.com/movienighthub/movienight/internal/core/store"
	"github.com/movienighthub/movienight/internal/core/throttle"
	"github.com/movienighthub/movienight/internal/enrich"
	"github.com/movienighthub/movienight/internal/llm"
	"github.com/movienighthub/movienight/internal/metadata"
	"github.com/movienighthub/movienight/internal/metadata/omdb"
	"github.com/movienighthub/movienight/internal/metadata/tmdb"
	"github.com/movienighthub/movienight/internal/observability"
	"github.com/movienighthub/movienight/internal/ratelimit"
	"github.com/movienighthub/movienight/internal/server/handlers"
)

// limiterMaxWait bounds how long a metadata call waits for its host window.
const limiterMaxWait = 5 * time.Second

// app is the wired service graph shared by serve and the one-shot commands.
type app struct {
	Config    *config.Config
	Store     *store.Store
	Cache     cache.Backend
	Limiter   *throttle.RateLimiter
	Tracker   *ratelimit.Tracker
	Requester *enrich.Requester
	TMDB      *tmdb.Client
	OMDB      *omdb.Client

	closers []func() error
}

// buildApp loads configuration and wires every dependency. A missing AI key
// is not an error: Requester stays nil and the AI endpoints report it.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{Config: cfg, Tracker: ratelimit.New()}

	db, err := openStoreWith(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = db
	a.closers = append(a.closers, db.Close)

	backend, closeCache, err := openCache(ctx, cfg.Cache, db)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Cache = backend
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}

	a.Limiter = &throttle.RateLimiter{Store: db, MaxWait: limiterMaxWait}
	a.Limiter.ApplyOverrides(cfg.RateLimits)
	a.Limiter.ApplySafetyMargin(cfg.RateLimitMargin)

	if cfg.AI.TracePath != "" && traceFile == "" {
		enableTracing(cfg.AI.TracePath)
	}

	resolved, err := llm.Resolve(cfg.AI)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logDebug("AI provider not configured, enrichment disabled")
	case err != nil:
		_ = a.Close()
		return nil, fmt.Errorf("resolve ai provider: %w", err)
	default:
		requester := enrich.NewRequester(resolved, a.Tracker)
		requester.Cache = a.Cache
		if cfg.Cache.EnrichmentTTL > 0 {
			requester.CacheTTL = cfg.Cache.EnrichmentTTL
		}
		requester.MaxRetries = cfg.Enrichment.MaxRetries
		if cfg.Enrichment.RetryDelay > 0 {
			requester.RetryDelay = cfg.Enrichment.RetryDelay
		}
		if cfg.Enrichment.Cooldown > 0 {
			requester.Cooldown = cfg.Enrichment.Cooldown
		}
		a.Requester = requester
	}

	a.TMDB = tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.ImageBaseURL,
		a.fetcher(cfg.TMDB.Timeout))
	a.OMDB = omdb.New(cfg.OMDB.APIKey, cfg.OMDB.BaseURL, a.fetcher(cfg.OMDB.Timeout))

	return a, nil
}

// Movies returns the HTTP handlers over the wired dependencies.
func (a *app) Movies() *handlers.Movies {
	movies := &handlers.Movies{
		Status:  a.Tracker,
		TMDB:    a.TMDB,
		Ratings: a.OMDB,
	}
	// Only assign a live requester; a typed nil would defeat the nil check.
	if a.Requester != nil {
		movies.AI = a.Requester
	}
	return movies
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) fetcher(timeout time.Duration) *metadata.Fetcher {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &metadata.Fetcher{
		HTTPClient: client,
		Limiter:    a.Limiter,
		Cache:      a.Cache,
		CacheTTL:   a.Config.Cache.MetadataTTL,
	}
}

// openCache selects the response cache backend. "none" yields a nil backend,
// which every consumer treats as cache disabled.
func openCache(ctx context.Context, cfg config.CacheConfig, db *store.Store) (cache.Backend, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "libsql":
		return db, nil, nil
	case "none":
		return nil, nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return cache.NewRedis(client, cfg.Redis.Prefix, time.Now), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

func logDebug(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Debug(msg, fields...)
	}
}

func logWarn(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Warn(msg, fields...)
	}
}
