package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// VisionClient invokes a multimodal chat model with an image part plus a
// text prompt. Used by the image audit.
type VisionClient struct {
	api   ChatAPI
	model string
}

// VisionConfig configures the vision client.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewVisionClient creates a new VisionClient.
func NewVisionClient(cfg VisionConfig) *VisionClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &VisionClient{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.Model,
	}
}

// NewVisionClientWithAPI creates a VisionClient over a custom API implementation (for testing).
func NewVisionClientWithAPI(api ChatAPI, model string) *VisionClient {
	return &VisionClient{api: api, model: model}
}

// Analyze sends the image and prompt to the vision model and returns the raw
// text of the first choice. Verdict parsing is the caller's concern; the raw
// output is preserved so ambiguous responses can be recorded.
func (c *VisionClient) Analyze(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("image cannot be empty")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
				},
			},
		},
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
