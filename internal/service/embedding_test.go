package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChunkEmbeddingRepository is a mock implementation of ChunkEmbeddingRepository
type MockChunkEmbeddingRepository struct {
	mock.Mock
}

func (m *MockChunkEmbeddingRepository) ListChunksWithoutEmbedding(ctx context.Context, manualID string) ([]*domain.ManualChunk, error) {
	args := m.Called(ctx, manualID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ManualChunk), args.Error(1)
}

func (m *MockChunkEmbeddingRepository) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	args := m.Called(ctx, chunkID, embedding)
	return args.Error(0)
}

func TestChunkEmbeddingService_EmbedManualChunks(t *testing.T) {
	ctx := context.Background()

	pendingChunks := []*domain.ManualChunk{
		{ID: "chunk-1", ManualID: "manual-1", Section: "tone.dos", Text: "short sentences"},
		{ID: "chunk-2", ManualID: "manual-1", Section: "messaging.value_props", Text: "slow brewed"},
	}

	t.Run("embeds every chunk without an embedding", func(t *testing.T) {
		repo := new(MockChunkEmbeddingRepository)
		embedding := new(MockEmbeddingClient)
		svc := NewChunkEmbeddingService(repo, embedding)

		repo.On("ListChunksWithoutEmbedding", mock.Anything, "manual-1").Return(pendingChunks, nil)
		embedding.On("GenerateEmbedding", mock.Anything, "short sentences").Return([]float32{0.1, 0.2}, nil)
		embedding.On("GenerateEmbedding", mock.Anything, "slow brewed").Return([]float32{0.3, 0.4}, nil)
		repo.On("UpdateChunkEmbedding", mock.Anything, "chunk-1", []float32{0.1, 0.2}).Return(nil)
		repo.On("UpdateChunkEmbedding", mock.Anything, "chunk-2", []float32{0.3, 0.4}).Return(nil)

		err := svc.EmbedManualChunks(ctx, "manual-1")

		require.NoError(t, err)
		repo.AssertExpectations(t)
		embedding.AssertExpectations(t)
	})

	t.Run("nothing to do when all chunks are embedded", func(t *testing.T) {
		repo := new(MockChunkEmbeddingRepository)
		embedding := new(MockEmbeddingClient)
		svc := NewChunkEmbeddingService(repo, embedding)

		repo.On("ListChunksWithoutEmbedding", mock.Anything, "manual-1").Return([]*domain.ManualChunk{}, nil)

		err := svc.EmbedManualChunks(ctx, "manual-1")

		require.NoError(t, err)
		embedding.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	})

	t.Run("stops at the first embedding failure", func(t *testing.T) {
		repo := new(MockChunkEmbeddingRepository)
		embedding := new(MockEmbeddingClient)
		svc := NewChunkEmbeddingService(repo, embedding)

		repo.On("ListChunksWithoutEmbedding", mock.Anything, "manual-1").Return(pendingChunks, nil)
		embedding.On("GenerateEmbedding", mock.Anything, "short sentences").Return(nil, errors.New("rate limited"))

		err := svc.EmbedManualChunks(ctx, "manual-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk-1")
		repo.AssertNotCalled(t, "UpdateChunkEmbedding", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure surfaces with the chunk ID", func(t *testing.T) {
		repo := new(MockChunkEmbeddingRepository)
		embedding := new(MockEmbeddingClient)
		svc := NewChunkEmbeddingService(repo, embedding)

		repo.On("ListChunksWithoutEmbedding", mock.Anything, "manual-1").Return(pendingChunks[:1], nil)
		embedding.On("GenerateEmbedding", mock.Anything, "short sentences").Return([]float32{0.1}, nil)
		repo.On("UpdateChunkEmbedding", mock.Anything, "chunk-1", []float32{0.1}).Return(errors.New("write failed"))

		err := svc.EmbedManualChunks(ctx, "manual-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store embedding for chunk chunk-1")
	})

	t.Run("list failure surfaces with the manual ID", func(t *testing.T) {
		repo := new(MockChunkEmbeddingRepository)
		embedding := new(MockEmbeddingClient)
		svc := NewChunkEmbeddingService(repo, embedding)

		repo.On("ListChunksWithoutEmbedding", mock.Anything, "manual-1").Return(nil, errors.New("connection refused"))

		err := svc.EmbedManualChunks(ctx, "manual-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list chunks for manual manual-1")
	})
}
