package repository

import (
	"context"
	"errors"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PrincipalRepository struct {
	db dbtx
}

func NewPrincipalRepository(pool *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{db: pool}
}

func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO principals (id, email, role, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Email, p.Role, p.CreatedAt,
	)
	return err
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	var p domain.Principal
	err := r.db.QueryRow(ctx,
		`SELECT id, email, role, created_at FROM principals WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PrincipalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	var p domain.Principal
	err := r.db.QueryRow(ctx,
		`SELECT id, email, role, created_at FROM principals WHERE email = $1`,
		email,
	).Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PrincipalRepository) List(ctx context.Context) ([]*domain.Principal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, email, role, created_at FROM principals ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var principals []*domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := rows.Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		principals = append(principals, &p)
	}
	return principals, rows.Err()
}
