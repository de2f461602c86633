package llm

import "time"

// Config selects and configures the enrichment provider.
type Config struct {
	// Provider is the driver identifier: "anthropic" (default) or "openai".
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`

	MaxTokens int `mapstructure:"max_tokens"`

	// WebSearch attaches the provider's hosted web search tool when supported.
	WebSearch bool `mapstructure:"web_search"`

	// TracePath, when set, appends NDJSON request traces to the file.
	TracePath string `mapstructure:"trace_path"`
}

// Provider defaults.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultTimeout   = 20 * time.Second
	DefaultMaxTokens = 1024
)

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderOpenAI:    "gpt-4o-mini",
}
