package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ManualRepository persists manuals and their retrievable chunks.
type ManualRepository struct {
	db dbtx
}

func NewManualRepository(pool *pgxpool.Pool) *ManualRepository {
	return &ManualRepository{db: pool}
}

func NewManualRepositoryWithTx(tx pgx.Tx) *ManualRepository {
	return &ManualRepository{db: tx}
}

func (r *ManualRepository) Create(ctx context.Context, m *domain.Manual) error {
	doc, err := json.Marshal(m.Document)
	if err != nil {
		return fmt.Errorf("failed to marshal manual document: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO manuals (id, brand_id, document, created_at) VALUES ($1, $2, $3, $4)`,
		m.ID, m.BrandID, doc, m.CreatedAt,
	)
	return err
}

func (r *ManualRepository) GetByID(ctx context.Context, id string) (*domain.Manual, error) {
	var m domain.Manual
	var doc []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, brand_id, document, created_at FROM manuals WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.BrandID, &doc, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrManualNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(doc, &m.Document); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manual document: %w", err)
	}
	return &m, nil
}

func (r *ManualRepository) GetLatestByBrand(ctx context.Context, brandID string) (*domain.Manual, error) {
	var m domain.Manual
	var doc []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, brand_id, document, created_at
		 FROM manuals WHERE brand_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		brandID,
	).Scan(&m.ID, &m.BrandID, &doc, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrManualNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(doc, &m.Document); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manual document: %w", err)
	}
	return &m, nil
}

func (r *ManualRepository) CreateChunks(ctx context.Context, chunks []*domain.ManualChunk) error {
	for _, c := range chunks {
		_, err := r.db.Exec(ctx,
			`INSERT INTO manual_chunks (id, manual_id, section, ordinal, chunk_text, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.ManualID, c.Section, c.Ordinal, c.Text, c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SearchChunks runs cosine k-NN over the manual's embedded chunks.
// Chunks without an embedding are invisible to retrieval until the
// embedding job has processed them.
func (r *ManualRepository) SearchChunks(ctx context.Context, manualID string, embedding []float32, k int) ([]service.ScoredChunk, error) {
	if k <= 0 {
		k = 6
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, manual_id, section, ordinal, chunk_text, created_at,
		        1 - (embedding <=> $2) AS similarity
		 FROM manual_chunks
		 WHERE manual_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2 ASC, ordinal ASC
		 LIMIT $3`,
		manualID, pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []service.ScoredChunk
	for rows.Next() {
		var sc service.ScoredChunk
		if err := rows.Scan(&sc.Chunk.ID, &sc.Chunk.ManualID, &sc.Chunk.Section, &sc.Chunk.Ordinal,
			&sc.Chunk.Text, &sc.Chunk.CreatedAt, &sc.Score); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

func (r *ManualRepository) ListChunksWithoutEmbedding(ctx context.Context, manualID string) ([]*domain.ManualChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, manual_id, section, ordinal, chunk_text, created_at
		 FROM manual_chunks
		 WHERE manual_id = $1 AND embedding IS NULL
		 ORDER BY ordinal ASC`,
		manualID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.ManualChunk
	for rows.Next() {
		var c domain.ManualChunk
		if err := rows.Scan(&c.ID, &c.ManualID, &c.Section, &c.Ordinal, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *ManualRepository) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE manual_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), chunkID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrManualNotFound
	}
	return nil
}

// CountEmbeddedChunks reports how many chunks of the manual are retrievable.
func (r *ManualRepository) CountEmbeddedChunks(ctx context.Context, manualID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM manual_chunks WHERE manual_id = $1 AND embedding IS NOT NULL`,
		manualID,
	).Scan(&count)
	return count, err
}
