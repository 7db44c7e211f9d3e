package refiner

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
)

// OpenRouterCompleter reaches any OpenRouter model through its
// OpenAI-compatible endpoint.
type OpenRouterCompleter struct {
	modelName string
	llm       llms.Model
}

func NewOpenRouterCompleter(apiKey, modelName, baseURL string) (*OpenRouterCompleter, error) {
	if modelName == "" {
		modelName = DefaultOpenRouterModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
		openai.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openrouter client: %w", err)
	}
	return &OpenRouterCompleter{modelName: modelName, llm: llm}, nil
}

func (c *OpenRouterCompleter) Name() string {
	return "openrouter:" + c.modelName
}

func (c *OpenRouterCompleter) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(float64(temperature)))
	if err != nil {
		return "", fmt.Errorf("openrouter generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
