package catalog

import (
	"context"
	"database/sql"
	"errors"
)

// Repository resolves product references for order submissions and
// display summaries. Catalog management itself lives elsewhere.
type Repository interface {
	GetProduct(ctx context.Context, productID uint) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetProduct(ctx context.Context, productID uint) (*Product, error) {
	query := `
		SELECT id, name, active
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query, productID).
		Scan(&p.ID, &p.Name, &p.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}
