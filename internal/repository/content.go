package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/pagination"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository persists generated content pieces and their frozen
// retrieval context.
type ContentRepository struct {
	db dbtx
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: pool}
}

func NewContentRepositoryWithTx(tx pgx.Tx) *ContentRepository {
	return &ContentRepository{db: tx}
}

func (r *ContentRepository) Create(ctx context.Context, p *domain.ContentPiece) error {
	contextJSON, err := json.Marshal(p.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal content context: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO content_pieces (id, brand_id, manual_id, creator_id, type, brief, output, context, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.BrandID, p.ManualID, p.CreatorID, p.Type, p.Brief, p.Output, contextJSON, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*domain.ContentPiece, error) {
	var p domain.ContentPiece
	var contextJSON []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, brand_id, manual_id, creator_id, type, brief, output, context, status, created_at, updated_at
		 FROM content_pieces WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.BrandID, &p.ManualID, &p.CreatorID, &p.Type, &p.Brief, &p.Output, &contextJSON, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentPieceNotFound
		}
		return nil, err
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &p.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content context: %w", err)
		}
	}
	return &p, nil
}

// TransitionStatus conditionally moves a piece from one status to another.
// Returns false without error when the piece exists but is not in the
// expected status, which serializes concurrent approve/reject races.
func (r *ContentRepository) TransitionStatus(ctx context.Context, id string, from, to domain.ContentStatus, updatedAt time.Time) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE content_pieces SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, updatedAt, id, from,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *ContentRepository) ListWithCursor(ctx context.Context, status domain.ContentStatus, cursor *pagination.Cursor, limit int) (*service.ContentPageResult, error) {
	return r.listWithCursor(ctx, "", status, cursor, limit)
}

func (r *ContentRepository) ListByCreatorWithCursor(ctx context.Context, creatorID string, status domain.ContentStatus, cursor *pagination.Cursor, limit int) (*service.ContentPageResult, error) {
	return r.listWithCursor(ctx, creatorID, status, cursor, limit)
}

func (r *ContentRepository) listWithCursor(ctx context.Context, creatorID string, status domain.ContentStatus, cursor *pagination.Cursor, limit int) (*service.ContentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, brand_id, manual_id, creator_id, type, brief, output, context, status, created_at, updated_at
	 FROM content_pieces WHERE 1=1`
	args := []any{}
	n := 0

	next := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if creatorID != "" {
		query += ` AND creator_id = ` + next(creatorID)
	}
	if status != "" {
		query += ` AND status = ` + next(status)
	}
	if cursor != nil {
		query += ` AND (created_at, id) < (` + next(cursor.Timestamp) + `, ` + next(cursor.LastID) + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + next(limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanContentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.ContentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanContentRows(rows pgx.Rows) ([]*domain.ContentPiece, error) {
	var results []*domain.ContentPiece
	for rows.Next() {
		var p domain.ContentPiece
		var contextJSON []byte
		if err := rows.Scan(&p.ID, &p.BrandID, &p.ManualID, &p.CreatorID, &p.Type, &p.Brief, &p.Output, &contextJSON, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &p.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal content context: %w", err)
			}
		}
		results = append(results, &p)
	}
	return results, rows.Err()
}
