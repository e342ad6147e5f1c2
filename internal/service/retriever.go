package service

import (
	"context"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/telemetry"
)

// ScoredChunk pairs a manual chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk domain.ManualChunk
	Score float64
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearchRepository performs k-NN search over a manual's chunks.
type ChunkSearchRepository interface {
	SearchChunks(ctx context.Context, manualID string, embedding []float32, k int) ([]ScoredChunk, error)
}

// Retriever embeds a query and fetches the nearest manual chunks. An empty
// result is a valid degraded condition for callers, not an error; only an
// unreachable embedding provider or vector store is reported as a failure.
type Retriever struct {
	embedding EmbeddingClient
	repo      ChunkSearchRepository
}

// NewRetriever creates a new Retriever instance
func NewRetriever(embedding EmbeddingClient, repo ChunkSearchRepository) *Retriever {
	return &Retriever{embedding: embedding, repo: repo}
}

// Retrieve returns up to k chunks from the given manual ordered by
// descending similarity. Ties are broken by chunk ordinal in the repository
// query so the sequence is stable.
func (r *Retriever) Retrieve(ctx context.Context, query, manualID string, k int) ([]ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		ManualID:  manualID,
		Operation: "retrieve",
	})
	defer span.End()

	if k <= 0 {
		k = 6
	}

	embedding, err := r.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalUnavailable, "embedding provider unreachable", err)
	}

	chunks, err := r.repo.SearchChunks(ctx, manualID, embedding, k)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalUnavailable, "vector store unreachable", err)
	}

	if chunks == nil {
		chunks = []ScoredChunk{}
	}
	return chunks, nil
}
