package repository

import (
	"context"
	"errors"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrApprovalNotFound = errors.New("approval not found")

type ApprovalRepository struct {
	db dbtx
}

func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{db: pool}
}

func NewApprovalRepositoryWithTx(tx pgx.Tx) *ApprovalRepository {
	return &ApprovalRepository{db: tx}
}

func (r *ApprovalRepository) Create(ctx context.Context, a *domain.Approval) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO approvals (id, piece_id, approver_id, role, decision, feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PieceID, a.ApproverID, a.Role, a.Decision, nullableString(a.Feedback), a.CreatedAt,
	)
	return err
}

func (r *ApprovalRepository) GetByPieceID(ctx context.Context, pieceID string) (*domain.Approval, error) {
	var a domain.Approval
	var feedback *string
	err := r.db.QueryRow(ctx,
		`SELECT id, piece_id, approver_id, role, decision, feedback, created_at
		 FROM approvals WHERE piece_id = $1`,
		pieceID,
	).Scan(&a.ID, &a.PieceID, &a.ApproverID, &a.Role, &a.Decision, &feedback, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApprovalNotFound
		}
		return nil, err
	}
	if feedback != nil {
		a.Feedback = *feedback
	}
	return &a, nil
}
