package repository

import (
	"context"
	"errors"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BrandRepository struct {
	db dbtx
}

func NewBrandRepository(pool *pgxpool.Pool) *BrandRepository {
	return &BrandRepository{db: pool}
}

func (r *BrandRepository) Create(ctx context.Context, b *domain.Brand) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO brands (id, name, created_at) VALUES ($1, $2, $3)`,
		b.ID, b.Name, b.CreatedAt,
	)
	return err
}

func (r *BrandRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	var b domain.Brand
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM brands WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBrandNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BrandRepository) GetByName(ctx context.Context, name string) (*domain.Brand, error) {
	var b domain.Brand
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM brands WHERE name = $1`,
		name,
	).Scan(&b.ID, &b.Name, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBrandNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BrandRepository) List(ctx context.Context) ([]*domain.Brand, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM brands ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []*domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		brands = append(brands, &b)
	}
	return brands, rows.Err()
}
