package repository

import (
	"context"

	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner runs a function against repositories bound to one pgx
// transaction. The approval flow depends on this: reading a piece,
// flipping its status, and recording the decision must commit or roll
// back together.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Content() service.ContentRepositoryInterface {
	return NewContentRepositoryWithTx(r.tx)
}

func (r *txRepos) Approvals() service.ApprovalRepositoryInterface {
	return NewApprovalRepositoryWithTx(r.tx)
}
