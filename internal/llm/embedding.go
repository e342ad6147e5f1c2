// Package llm wraps the OpenAI-compatible model providers used by the
// generation and audit pipelines: embeddings, chat completion and vision.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimensions is the dimension of text-embedding-3-small vectors
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingClient generates fixed-dimension embeddings for manual chunks
// and retrieval queries.
type EmbeddingClient struct {
	api        EmbeddingAPI
	dimensions int
}

type openAIEmbeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func newOpenAIEmbeddingAdapter(apiKey, model string) *openAIEmbeddingAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &openAIEmbeddingAdapter{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *openAIEmbeddingAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	APIKey     string
	Model      string
	Dimensions int
}

// NewEmbeddingClient creates a new EmbeddingClient using defaults.
func NewEmbeddingClient(apiKey string) *EmbeddingClient {
	return NewEmbeddingClientWithConfig(EmbeddingConfig{APIKey: apiKey})
}

// NewEmbeddingClientWithConfig creates a new EmbeddingClient with explicit configuration.
func NewEmbeddingClientWithConfig(cfg EmbeddingConfig) *EmbeddingClient {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &EmbeddingClient{
		api:        newOpenAIEmbeddingAdapter(cfg.APIKey, cfg.Model),
		dimensions: dimensions,
	}
}

// GenerateEmbedding generates an embedding for the given text
func (c *EmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}
