package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one entry of a chat prompt.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatAPI defines the interface for chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatClient invokes an OpenAI-compatible chat completion endpoint.
// A custom base URL lets the same client talk to Groq or any other
// compatible provider.
type ChatClient struct {
	api         ChatAPI
	model       string
	temperature float32
}

// ChatConfig configures the chat client.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// NewChatClient creates a new ChatClient.
func NewChatClient(cfg ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.5
	}
	return &ChatClient{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
	}
}

// NewChatClientWithAPI creates a ChatClient over a custom API implementation (for testing).
func NewChatClientWithAPI(api ChatAPI, model string, temperature float32) *ChatClient {
	return &ChatClient{api: api, model: model, temperature: temperature}
}

// Complete sends the messages to the model and returns the first choice's text.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
