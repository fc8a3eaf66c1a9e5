// Package llm provides the reasoning oracle used for skill selection and code
// generation. Every provider takes a single instruction prompt and answers
// with free text, either in one piece or streamed incrementally.
package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// Oracle is the external reasoning service.
type Oracle interface {
	// Complete sends prompt and returns the whole response.
	Complete(ctx context.Context, prompt string) (string, error)
	// Stream sends prompt, forwards each text fragment to handler as it
	// arrives and returns the concatenated response.
	Stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error)
	// Name identifies the provider and model, e.g. "openai/gpt-4.1".
	Name() string
}

// NewOracle creates the oracle for the configured provider.
func NewOracle(config llmtypes.Config) (Oracle, error) {
	switch strings.ToLower(config.Provider) {
	case llmtypes.ProviderOpenAI, "":
		return NewOpenAIOracle(config)
	case llmtypes.ProviderAnthropic:
		return NewAnthropicOracle(config)
	case llmtypes.ProviderGoogle, "gemini":
		return NewGoogleOracle(context.Background(), config)
	default:
		return nil, errors.Errorf("unsupported provider: %s", config.Provider)
	}
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 8192
	}
	return n
}
