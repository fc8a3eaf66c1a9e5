package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	pkgerrors "github.com/pkg/errors"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// AnthropicOracle talks to the Anthropic messages API.
type AnthropicOracle struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int
	retry     llmtypes.RetryConfig
}

// NewAnthropicOracle creates an Anthropic oracle. The API key falls back to
// ANTHROPIC_API_KEY.
func NewAnthropicOracle(config llmtypes.Config) (*AnthropicOracle, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, pkgerrors.New("Anthropic API key is required (set api_key or ANTHROPIC_API_KEY)")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	model := anthropic.ModelClaudeSonnet4_0
	if config.Model != "" {
		model = anthropic.Model(config.Model)
	}

	return &AnthropicOracle{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOrDefault(config.MaxTokens),
		retry:     config.Retry,
	}, nil
}

// Name implements Oracle.
func (o *AnthropicOracle) Name() string {
	return llmtypes.ProviderAnthropic + "/" + string(o.model)
}

func (o *AnthropicOracle) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     o.model,
		MaxTokens: int64(o.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

// Complete implements Oracle.
func (o *AnthropicOracle) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, llmtypes.ProviderAnthropic, o.retry, isRetryableAnthropicError, func() (string, error) {
		msg, err := o.client.Messages.New(ctx, o.params(prompt))
		if err != nil {
			return "", err
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		return text.String(), nil
	})
}

// Stream implements Oracle.
func (o *AnthropicOracle) Stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error) {
	guard := &streamGuard{handler: handler}
	text, err := withRetry(ctx, llmtypes.ProviderAnthropic, o.retry, guard.retryable(isRetryableAnthropicError), func() (string, error) {
		return o.stream(ctx, prompt, guard)
	})
	if err != nil {
		return "", err
	}
	guard.HandleDone()
	return text, nil
}

func (o *AnthropicOracle) stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error) {
	stream := o.client.Messages.NewStreaming(ctx, o.params(prompt))
	defer stream.Close()

	var content strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				handler.HandleTextDelta(delta.Text)
				content.WriteString(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}

	return content.String(), nil
}

func isRetryableAnthropicError(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		// 529 is the API's overloaded status.
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
