package config

import (
	"time"

	"github.com/movienighthub/movienight/internal/llm"
)

// Config is the complete application configuration. Values are layered as
// built-in defaults, then the config file, then MOVIENIGHT_* environment
// variables, then runtime overrides from CLI flags.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	AI         llm.Config       `mapstructure:"ai"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Queue      QueueConfig      `mapstructure:"queue"`
	TMDB       TMDBConfig       `mapstructure:"tmdb"`
	OMDB       OMDBConfig       `mapstructure:"omdb"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`

	// RateLimits overrides outbound requests per minute, keyed by host.
	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig selects the response cache backend and its TTLs.
type CacheConfig struct {
	// Backend is one of "libsql" (default), "redis" or "none".
	Backend       string        `mapstructure:"backend"`
	EnrichmentTTL time.Duration `mapstructure:"enrichment_ttl"`
	MetadataTTL   time.Duration `mapstructure:"metadata_ttl"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

// RedisConfig is used when cache.backend is "redis".
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// EnrichmentConfig tunes the bounded provider retry.
type EnrichmentConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
}

// QueueConfig configures the client enrichment queue.
type QueueConfig struct {
	ServerURL string `mapstructure:"server_url"`
	Capacity  int    `mapstructure:"capacity"`
	// Schedule is a robfig/cron spec for the drain tick.
	Schedule string        `mapstructure:"schedule"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TMDBConfig configures The Movie Database client.
type TMDBConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// OMDBConfig configures the OMDb ratings client.
type OMDBConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
