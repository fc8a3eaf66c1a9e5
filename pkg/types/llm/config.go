// Package llm holds the configuration and handler types shared by the oracle
// providers and their callers.
package llm

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Config holds the configuration for the reasoning oracle.
type Config struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	APIKey    string `mapstructure:"api_key"`
	// BaseURL points the OpenAI provider at any OpenAI-compatible endpoint.
	BaseURL string `mapstructure:"base_url"`

	Retry  RetryConfig   `mapstructure:"retry"`
	Google *GoogleConfig `mapstructure:"google"`

	Aliases  map[string]string        `mapstructure:"aliases"`
	Profiles map[string]ProfileConfig `mapstructure:"profiles"`
}

// GoogleConfig selects between the Gemini API and Vertex AI.
type GoogleConfig struct {
	Backend  string `mapstructure:"backend"` // gemini or vertexai
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
}

// ProfileConfig is a named set of overrides applied on top of Config.
type ProfileConfig map[string]any

// RetryConfig controls retries of transient API failures. Delays are in
// milliseconds.
type RetryConfig struct {
	Attempts     int    `mapstructure:"attempts"`
	InitialDelay int    `mapstructure:"initial_delay"`
	MaxDelay     int    `mapstructure:"max_delay"`
	BackoffType  string `mapstructure:"backoff_type"` // fixed or exponential
}

// DefaultRetryConfig is used when no retry settings are configured.
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 1000,
	MaxDelay:     10000,
	BackoffType:  "exponential",
}
