package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/genai"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

const defaultGoogleModel = "gemini-2.5-pro"

// GoogleOracle talks to Gemini through either the Gemini API or Vertex AI.
type GoogleOracle struct {
	client    *genai.Client
	model     string
	maxTokens int
	retry     llmtypes.RetryConfig
	backend   genai.Backend
}

// NewGoogleOracle creates a Google oracle. Vertex AI is used when a project
// is configured (or GOOGLE_CLOUD_PROJECT is set) and the backend is not
// pinned to gemini; otherwise the Gemini API key is required.
func NewGoogleOracle(ctx context.Context, config llmtypes.Config) (*GoogleOracle, error) {
	clientConfig := &genai.ClientConfig{}
	backend := detectGoogleBackend(config)

	switch backend {
	case genai.BackendVertexAI:
		clientConfig.Backend = genai.BackendVertexAI
		if config.Google != nil {
			clientConfig.Project = config.Google.Project
			clientConfig.Location = config.Google.Location
		}
		if clientConfig.Project == "" {
			clientConfig.Project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if clientConfig.Location == "" {
			clientConfig.Location = os.Getenv("GOOGLE_CLOUD_LOCATION")
		}
	default:
		apiKey := config.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, pkgerrors.New("Google API key is required (set api_key, GOOGLE_API_KEY or GEMINI_API_KEY)")
		}
		clientConfig.Backend = genai.BackendGeminiAPI
		clientConfig.APIKey = apiKey
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create Google GenAI client")
	}

	model := config.Model
	if model == "" {
		model = defaultGoogleModel
	}

	return &GoogleOracle{
		client:    client,
		model:     model,
		maxTokens: maxTokensOrDefault(config.MaxTokens),
		retry:     config.Retry,
		backend:   clientConfig.Backend,
	}, nil
}

func detectGoogleBackend(config llmtypes.Config) genai.Backend {
	if config.Google != nil {
		switch strings.ToLower(config.Google.Backend) {
		case "vertexai", "vertex":
			return genai.BackendVertexAI
		case "gemini", "geminiapi":
			return genai.BackendGeminiAPI
		}
		if config.Google.Project != "" {
			return genai.BackendVertexAI
		}
	}
	if config.APIKey == "" && os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		return genai.BackendVertexAI
	}
	return genai.BackendGeminiAPI
}

// Name implements Oracle.
func (o *GoogleOracle) Name() string {
	return llmtypes.ProviderGoogle + "/" + o.model
}

func (o *GoogleOracle) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{MaxOutputTokens: int32(o.maxTokens)}
}

// Complete implements Oracle.
func (o *GoogleOracle) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, llmtypes.ProviderGoogle, o.retry, isRetryableGoogleError, func() (string, error) {
		resp, err := o.client.Models.GenerateContent(ctx, o.model, genai.Text(prompt), o.generationConfig())
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
}

// Stream implements Oracle.
func (o *GoogleOracle) Stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error) {
	guard := &streamGuard{handler: handler}
	text, err := withRetry(ctx, llmtypes.ProviderGoogle, o.retry, guard.retryable(isRetryableGoogleError), func() (string, error) {
		var content strings.Builder
		for resp, err := range o.client.Models.GenerateContentStream(ctx, o.model, genai.Text(prompt), o.generationConfig()) {
			if err != nil {
				return "", err
			}
			delta := resp.Text()
			guard.HandleTextDelta(delta)
			content.WriteString(delta)
		}
		return content.String(), nil
	})
	if err != nil {
		return "", err
	}
	guard.HandleDone()
	return text, nil
}

func isRetryableGoogleError(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "unavailable")
}
