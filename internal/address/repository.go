package address

import (
	"context"
	"database/sql"
	"errors"
)

// Repository resolves a customer's saved delivery addresses. The query is
// scoped by owner so a caller can never use another customer's address.
type Repository interface {
	GetUserAddress(ctx context.Context, addressID, userID uint) (*Address, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetUserAddress(ctx context.Context, addressID, userID uint) (*Address, error) {
	query := `
		SELECT id, user_id, text
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`

	var a Address
	err := r.db.QueryRowContext(ctx, query, addressID, userID).
		Scan(&a.ID, &a.UserID, &a.Text)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}
