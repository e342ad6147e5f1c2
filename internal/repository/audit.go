package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAuditRecordNotFound = errors.New("audit record not found")

// AuditRepository persists immutable audit records. There is no update or
// delete path; re-audits append.
type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func (r *AuditRepository) Create(ctx context.Context, rec *domain.AuditRecord) error {
	validatedJSON, err := json.Marshal(rec.ValidatedRules)
	if err != nil {
		return fmt.Errorf("failed to marshal validated rules: %w", err)
	}
	violationsJSON, err := json.Marshal(rec.Violations)
	if err != nil {
		return fmt.Errorf("failed to marshal violations: %w", err)
	}
	contextJSON, err := json.Marshal(rec.RuleContext)
	if err != nil {
		return fmt.Errorf("failed to marshal rule context: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO audit_records (id, piece_id, auditor_id, image_key, image_url, verdict, explanation, validated_rules, violations, rule_context, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.PieceID, rec.AuditorID, rec.ImageKey, nullableString(rec.ImageURL), rec.Verdict,
		rec.Explanation, validatedJSON, violationsJSON, contextJSON, rec.CreatedAt,
	)
	return err
}

func (r *AuditRepository) GetByID(ctx context.Context, id string) (*domain.AuditRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, piece_id, auditor_id, image_key, image_url, verdict, explanation, validated_rules, violations, rule_context, created_at
		 FROM audit_records WHERE id = $1`,
		id,
	)
	rec, err := scanAuditRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuditRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *AuditRepository) ListByPiece(ctx context.Context, pieceID string) ([]*domain.AuditRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, piece_id, auditor_id, image_key, image_url, verdict, explanation, validated_rules, violations, rule_context, created_at
		 FROM audit_records WHERE piece_id = $1 ORDER BY created_at DESC, id DESC`,
		pieceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAuditRecord(row pgx.Row) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var imageURL *string
	var validatedJSON, violationsJSON, contextJSON []byte
	if err := row.Scan(&rec.ID, &rec.PieceID, &rec.AuditorID, &rec.ImageKey, &imageURL, &rec.Verdict,
		&rec.Explanation, &validatedJSON, &violationsJSON, &contextJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if imageURL != nil {
		rec.ImageURL = *imageURL
	}
	if len(validatedJSON) > 0 {
		if err := json.Unmarshal(validatedJSON, &rec.ValidatedRules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validated rules: %w", err)
		}
	}
	if len(violationsJSON) > 0 {
		if err := json.Unmarshal(violationsJSON, &rec.Violations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal violations: %w", err)
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &rec.RuleContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule context: %w", err)
		}
	}
	return &rec, nil
}
