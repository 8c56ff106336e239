package address

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetUserAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "text"}).
			AddRow(1, 10, "Av. Siempre Viva 742")

		mock.ExpectQuery(`SELECT id, user_id, text FROM addresses WHERE id = \$1 AND user_id = \$2`).
			WithArgs(uint(1), uint(10)).
			WillReturnRows(rows)

		a, err := repo.GetUserAddress(ctx, 1, 10)
		assert.NoError(t, err)
		assert.Equal(t, "Av. Siempre Viva 742", a.Text)
	})

	t.Run("NotOwned", func(t *testing.T) {
		// Same address id, different owner: the scoped query returns no
		// rows and the lookup fails closed.
		mock.ExpectQuery(`SELECT id, user_id, text FROM addresses`).
			WithArgs(uint(1), uint(11)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "text"}))

		_, err := repo.GetUserAddress(ctx, 1, 11)
		assert.ErrorIs(t, err, ErrAddressNotFound)
	})
}
