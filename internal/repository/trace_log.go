package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TraceLogRepository stores generation and audit trace records. Writes come
// from the async trace recorder, one row per attempt.
type TraceLogRepository struct {
	pool *pgxpool.Pool
}

func NewTraceLogRepository(pool *pgxpool.Pool) *TraceLogRepository {
	return &TraceLogRepository{pool: pool}
}

func (r *TraceLogRepository) CreateTrace(ctx context.Context, rec service.TraceRecord) (string, error) {
	inputJSON, _ := json.Marshal(rec.Input)
	contextJSON, _ := json.Marshal(rec.Context)

	// The recorder stamps records when the operation finishes; the row
	// must carry that time, not the drain time.
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO trace_log (name, principal_id, brand_id, manual_id, piece_id, input, context, prompt_system, prompt_user, output, error, status, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		rec.Name,
		nullableString(rec.PrincipalID),
		nullableString(rec.BrandID),
		nullableString(rec.ManualID),
		nullableString(rec.PieceID),
		inputJSON,
		contextJSON,
		rec.PromptSys,
		rec.PromptUser,
		rec.Output,
		nullableString(rec.Error),
		rec.Status,
		rec.LatencyMS,
		rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
