package llm

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// OpenAIOracle talks to the OpenAI chat completions API or any compatible
// endpoint configured through BaseURL.
type OpenAIOracle struct {
	client    *openai.Client
	model     string
	maxTokens int
	retry     llmtypes.RetryConfig
}

// NewOpenAIOracle creates an OpenAI oracle. The API key falls back to
// OPENAI_API_KEY.
func NewOpenAIOracle(config llmtypes.Config) (*OpenAIOracle, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, pkgerrors.New("OpenAI API key is required (set api_key or OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4Dot1
	}

	return &OpenAIOracle{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: maxTokensOrDefault(config.MaxTokens),
		retry:     config.Retry,
	}, nil
}

// Name implements Oracle.
func (o *OpenAIOracle) Name() string {
	return llmtypes.ProviderOpenAI + "/" + o.model
}

func (o *OpenAIOracle) request(prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
	}
}

// Complete implements Oracle.
func (o *OpenAIOracle) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, llmtypes.ProviderOpenAI, o.retry, isRetryableOpenAIError, func() (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, o.request(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", pkgerrors.New("OpenAI response contained no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// Stream implements Oracle.
func (o *OpenAIOracle) Stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error) {
	guard := &streamGuard{handler: handler}
	text, err := withRetry(ctx, llmtypes.ProviderOpenAI, o.retry, guard.retryable(isRetryableOpenAIError), func() (string, error) {
		return o.stream(ctx, prompt, guard)
	})
	if err != nil {
		return "", err
	}
	guard.HandleDone()
	return text, nil
}

func (o *OpenAIOracle) stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error) {
	req := o.request(prompt)
	req.Stream = true

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var content strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			handler.HandleTextDelta(choice.Delta.Content)
			content.WriteString(choice.Delta.Content)
		}
	}

	return content.String(), nil
}

func isRetryableOpenAIError(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}
