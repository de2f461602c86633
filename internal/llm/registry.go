// Package llm resolves the configured completion provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/movienighthub/movienight/internal/llm/driver"
	"github.com/movienighthub/movienight/internal/llm/driver/anthropic"
	"github.com/movienighthub/movienight/internal/llm/driver/openai"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("ai provider api key not configured")

// Resolved is a ready-to-use driver plus the request defaults for it.
type Resolved struct {
	Driver    driver.Driver
	Model     string
	MaxTokens int
	WebSearch bool
}

// Configured reports whether the provider has credentials.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Resolve builds the driver selected by cfg.
func Resolve(cfg Config) (*Resolved, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAnthropic
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var drv driver.Driver
	switch provider {
	case ProviderAnthropic:
		client := anthropic.NewClient(cfg.BaseURL, cfg.APIKey)
		client.Timeout = timeout
		drv = client
	case ProviderOpenAI:
		client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
		client.Timeout = timeout
		drv = client
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", provider)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModels[provider]
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Resolved{
		Driver:    drv,
		Model:     model,
		MaxTokens: maxTokens,
		WebSearch: cfg.WebSearch && drv.Capabilities().SupportsWebSearch,
	}, nil
}

// ErrorCode classifies a provider failure for logs and metrics.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "PROVIDER_TIMEOUT"
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		switch {
		case perr.IsRateLimit():
			return "PROVIDER_RATE_LIMIT"
		case status == 401 || status == 403:
			return "PROVIDER_AUTH"
		case status >= 500 && status <= 599:
			return "PROVIDER_UNAVAILABLE"
		case status >= 400 && status <= 499:
			return "PROVIDER_BAD_REQUEST"
		}
	}
	return "PROVIDER_ERROR"
}
