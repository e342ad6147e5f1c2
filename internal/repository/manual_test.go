//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedManual(ctx context.Context, t *testing.T, repo *ManualRepository, brandID string, createdAt time.Time) *domain.Manual {
	t.Helper()
	m := domain.NewManual(uuid.NewString(), brandID, domain.ManualDocument{
		BrandName: "Driftwell",
		Product:   "sleep supplement",
		Audience:  "busy professionals",
	}, createdAt)
	require.NoError(t, repo.Create(ctx, m))
	return m
}

// unitVector returns a 1536-dim vector pointing along the given axis.
func unitVector(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func TestManualRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	brands := NewBrandRepository(pool)
	manuals := NewManualRepository(pool)

	brand := seedBrand(ctx, t, brands, "Driftwell")
	m := seedManual(ctx, t, manuals, brand.ID, time.Now().UTC().Truncate(time.Microsecond))

	retrieved, err := manuals.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, retrieved.ID)
	assert.Equal(t, brand.ID, retrieved.BrandID)
	assert.Equal(t, "Driftwell", retrieved.Document.BrandName)
	assert.Equal(t, "sleep supplement", retrieved.Document.Product)

	_, err = manuals.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrManualNotFound)
}

func TestManualRepository_GetLatestByBrand(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	brands := NewBrandRepository(pool)
	manuals := NewManualRepository(pool)

	brand := seedBrand(ctx, t, brands, "Driftwell")

	seedManual(ctx, t, manuals, brand.ID, time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond))
	newest := seedManual(ctx, t, manuals, brand.ID, time.Now().UTC().Truncate(time.Microsecond))

	latest, err := manuals.GetLatestByBrand(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, latest.ID)

	_, err = manuals.GetLatestByBrand(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrManualNotFound)
}

func TestManualRepository_ChunkEmbeddingLifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	brands := NewBrandRepository(pool)
	manuals := NewManualRepository(pool)

	brand := seedBrand(ctx, t, brands, "Driftwell")
	m := seedManual(ctx, t, manuals, brand.ID, time.Now().UTC().Truncate(time.Microsecond))

	now := time.Now().UTC().Truncate(time.Microsecond)
	chunks := []*domain.ManualChunk{
		{ID: uuid.NewString(), ManualID: m.ID, Section: "tone.dos", Ordinal: 0, Text: "calm and direct", CreatedAt: now},
		{ID: uuid.NewString(), ManualID: m.ID, Section: "tone.donts", Ordinal: 1, Text: "no hype", CreatedAt: now},
	}
	require.NoError(t, manuals.CreateChunks(ctx, chunks))

	pending, err := manuals.ListChunksWithoutEmbedding(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, chunks[0].ID, pending[0].ID)
	assert.Equal(t, chunks[1].ID, pending[1].ID)

	count, err := manuals.CountEmbeddedChunks(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, manuals.UpdateChunkEmbedding(ctx, chunks[0].ID, unitVector(0)))

	pending, err = manuals.ListChunksWithoutEmbedding(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, chunks[1].ID, pending[0].ID)

	count, err = manuals.CountEmbeddedChunks(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestManualRepository_UpdateChunkEmbedding_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	manuals := NewManualRepository(pool)

	err := manuals.UpdateChunkEmbedding(ctx, uuid.NewString(), unitVector(0))
	assert.ErrorIs(t, err, domain.ErrManualNotFound)
}

func TestManualRepository_SearchChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	brands := NewBrandRepository(pool)
	manuals := NewManualRepository(pool)

	brand := seedBrand(ctx, t, brands, "Driftwell")
	m := seedManual(ctx, t, manuals, brand.ID, time.Now().UTC().Truncate(time.Microsecond))

	now := time.Now().UTC().Truncate(time.Microsecond)
	chunks := []*domain.ManualChunk{
		{ID: uuid.NewString(), ManualID: m.ID, Section: "tone.dos", Ordinal: 0, Text: "calm and direct", CreatedAt: now},
		{ID: uuid.NewString(), ManualID: m.ID, Section: "forbidden_terms", Ordinal: 1, Text: "miracle, cure", CreatedAt: now},
		{ID: uuid.NewString(), ManualID: m.ID, Section: "value_props", Ordinal: 2, Text: "fall asleep faster", CreatedAt: now},
	}
	require.NoError(t, manuals.CreateChunks(ctx, chunks))

	// Orthogonal embeddings make the cosine ordering deterministic. The
	// third chunk stays unembedded and must never surface in results.
	require.NoError(t, manuals.UpdateChunkEmbedding(ctx, chunks[0].ID, unitVector(0)))
	require.NoError(t, manuals.UpdateChunkEmbedding(ctx, chunks[1].ID, unitVector(1)))

	results, err := manuals.SearchChunks(ctx, m.ID, unitVector(0), 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, chunks[0].ID, results[0].Chunk.ID)
	assert.Equal(t, "tone.dos", results[0].Chunk.Section)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	assert.Equal(t, chunks[1].ID, results[1].Chunk.ID)
	assert.Less(t, results[1].Score, results[0].Score)
}

func TestManualRepository_SearchChunks_LimitsResults(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	brands := NewBrandRepository(pool)
	manuals := NewManualRepository(pool)

	brand := seedBrand(ctx, t, brands, "Driftwell")
	m := seedManual(ctx, t, manuals, brand.ID, time.Now().UTC().Truncate(time.Microsecond))

	now := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 4; i++ {
		chunk := &domain.ManualChunk{
			ID: uuid.NewString(), ManualID: m.ID, Section: "messaging",
			Ordinal: i, Text: "value prop", CreatedAt: now,
		}
		require.NoError(t, manuals.CreateChunks(ctx, []*domain.ManualChunk{chunk}))
		require.NoError(t, manuals.UpdateChunkEmbedding(ctx, chunk.ID, unitVector(i)))
	}

	results, err := manuals.SearchChunks(ctx, m.ID, unitVector(0), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
