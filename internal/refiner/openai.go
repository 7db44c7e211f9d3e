package refiner

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAICompleter uses the OpenAI chat completions API through eino.
type OpenAICompleter struct {
	modelName string
	chat      model.BaseChatModel
}

// NewOpenAICompleter builds a chat model for modelName. baseURL may be empty
// to use the public endpoint.
func NewOpenAICompleter(ctx context.Context, apiKey, modelName, baseURL string, timeout time.Duration) (*OpenAICompleter, error) {
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	chatModelConfig := &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		Timeout: timeout,
	}
	if baseURL != "" {
		chatModelConfig.BaseURL = baseURL
	}

	chat, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return &OpenAICompleter{modelName: modelName, chat: chat}, nil
}

func (c *OpenAICompleter) Name() string {
	return "openai:" + c.modelName
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	resp, err := c.chat.Generate(ctx, messages, model.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	return resp.Content, nil
}
