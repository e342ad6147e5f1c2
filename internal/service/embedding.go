package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cadenlabs/brandgov/internal/domain"
)

// ChunkEmbeddingRepository defines the repository interface the chunk
// embedder needs.
type ChunkEmbeddingRepository interface {
	ListChunksWithoutEmbedding(ctx context.Context, manualID string) ([]*domain.ManualChunk, error)
	UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// ChunkEmbeddingService embeds manual chunks after ingestion. It is driven
// by the background job worker, never by request handlers.
type ChunkEmbeddingService struct {
	repo      ChunkEmbeddingRepository
	embedding EmbeddingClient
}

// NewChunkEmbeddingService creates a new ChunkEmbeddingService instance
func NewChunkEmbeddingService(repo ChunkEmbeddingRepository, embedding EmbeddingClient) *ChunkEmbeddingService {
	return &ChunkEmbeddingService{
		repo:      repo,
		embedding: embedding,
	}
}

// EmbedManualChunks embeds every chunk of the manual that does not yet have
// an embedding. Already-embedded chunks are skipped so a retried job does
// not redo finished work.
func (s *ChunkEmbeddingService) EmbedManualChunks(ctx context.Context, manualID string) error {
	chunks, err := s.repo.ListChunksWithoutEmbedding(ctx, manualID)
	if err != nil {
		return fmt.Errorf("failed to list chunks for manual %s: %w", manualID, err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("Embedding %d chunks for manual %s", len(chunks), manualID)

	for _, chunk := range chunks {
		embedding, err := s.embedding.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}

		if err := s.repo.UpdateChunkEmbedding(ctx, chunk.ID, embedding); err != nil {
			return fmt.Errorf("failed to store embedding for chunk %s: %w", chunk.ID, err)
		}
	}

	return nil
}
