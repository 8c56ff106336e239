package preorder

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"panaderia-be/internal/order"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var preOrderCols = []string{
	"id", "contact_name", "contact_email", "contact_phone",
	"delivery_date", "delivery_time",
	"fulfillment", "disposition", "delivery_address", "notes",
	"confirm_pin", "confirm_expires_at", "rejection_reason", "promoted_order_id",
	"created_at",
}

func pendingConfirmationRow(pin string, expiresAt time.Time) []driver.Value {
	return []driver.Value{
		uint(7), "María López", "maria@example.com", nil,
		"2025-03-11", "10:30",
		"pickup", string(DispositionPendingConfirmation), nil, nil,
		pin, expiresAt, nil, nil,
		time.Now(),
	}
}

func pendingApprovalRow() []driver.Value {
	return []driver.Value{
		uint(7), "María López", "maria@example.com", nil,
		"2025-03-11", "10:30",
		"pickup", string(DispositionPendingApproval), nil, nil,
		nil, nil, nil, nil,
		time.Now(),
	}
}

func expectLock(mock sqlmock.Sqlmock, row []driver.Value) {
	mock.ExpectQuery("SELECT(.+)FROM preorders WHERE id = \\$1 FOR UPDATE").
		WithArgs(uint(7)).
		WillReturnRows(sqlmock.NewRows(preOrderCols).AddRow(row...))
}

func expectItems(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT pi.id, pi.product_id, pi.unit, pi.quantity, p.name").
		WithArgs(uint(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "unit", "quantity", "name"}).
			AddRow(1, 3, "un", 12.0, "Pan flauta"))
}

func TestRepository_CreateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	pin := "123456"
	expires := time.Now().Add(30 * time.Minute)
	p := &PreOrder{
		ContactName:      "María López",
		DeliveryDate:     "2025-03-11",
		DeliveryTime:     "10:30",
		Fulfillment:      order.FulfillmentPickup,
		Disposition:      DispositionPendingConfirmation,
		ConfirmPIN:       &pin,
		ConfirmExpiresAt: &expires,
		Items: []order.LineItem{
			{ProductID: 3, Unit: order.UnitCount, Quantity: 12},
		},
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO preorders").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectExec("INSERT INTO preorder_items").
			WithArgs(uint(7), uint(3), order.UnitCount, 12.0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		id, err := repo.CreateTx(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, uint(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ItemInsertFailureRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO preorders").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectExec("INSERT INTO preorder_items").
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		_, err := repo.CreateTx(context.Background(), p)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetWithItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.+)FROM preorders WHERE id = \\$1").
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows(preOrderCols))

		_, err := repo.GetWithItems(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.+)FROM preorders WHERE id = \\$1").
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows(preOrderCols).
				AddRow(pendingApprovalRow()...))
		expectItems(mock)

		p, err := repo.GetWithItems(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, DispositionPendingApproval, p.Disposition)
		require.Len(t, p.Items, 1)
		assert.Equal(t, "Pan flauta", p.Items[0].ProductName)
	})
}

func TestRepository_PromoteByPIN(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingConfirmationRow("123456", now.Add(10*time.Minute)))
		expectItems(mock)
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(90))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(uint(90), uint(3), order.UnitCount, 12.0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("DELETE FROM preorder_items WHERE preorder_id = \\$1").
			WithArgs(uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM preorders WHERE id = \\$1").
			WithArgs(uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deposit := 500.0
		orderID, snapshot, err := repo.PromoteByPIN(context.Background(), 7, "123456", &deposit, now)
		require.NoError(t, err)
		assert.Equal(t, uint(90), orderID)
		require.NotNil(t, snapshot.Notes)
		assert.Equal(t, "Deposit: $500", *snapshot.Notes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("WrongPINWritesNothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingConfirmationRow("123456", now.Add(10*time.Minute)))
		mock.ExpectRollback()

		_, _, err = repo.PromoteByPIN(context.Background(), 7, "000000", nil, now)
		assert.ErrorIs(t, err, ErrPINMismatch)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExpiredPIN", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingConfirmationRow("123456", now.Add(-time.Minute)))
		mock.ExpectRollback()

		_, _, err = repo.PromoteByPIN(context.Background(), 7, "123456", nil, now)
		assert.ErrorIs(t, err, ErrPINExpired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RequiresApproval", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingApprovalRow())
		mock.ExpectRollback()

		_, _, err = repo.PromoteByPIN(context.Background(), 7, "123456", nil, now)
		assert.ErrorIs(t, err, ErrRequiresApproval)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT(.+)FROM preorders WHERE id = \\$1 FOR UPDATE").
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows(preOrderCols))
		mock.ExpectRollback()

		_, _, err = repo.PromoteByPIN(context.Background(), 7, "123456", nil, now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SerializationFailureMapsToConflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT(.+)FROM preorders WHERE id = \\$1 FOR UPDATE").
			WithArgs(uint(7)).
			WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()

		_, _, err = repo.PromoteByPIN(context.Background(), 7, "123456", nil, now)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestRepository_Approve(t *testing.T) {
	t.Run("SuccessRetainsAuditRow", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingApprovalRow())
		expectItems(mock)
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(91))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(uint(91), uint(3), order.UnitCount, 12.0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE preorders").
			WithArgs(DispositionApproved, uint(91), uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		orderID, snapshot, err := repo.Approve(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, uint(91), orderID)
		assert.Equal(t, DispositionApproved, snapshot.Disposition)
		require.NotNil(t, snapshot.PromotedOrderID)
		assert.Equal(t, uint(91), *snapshot.PromotedOrderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotPendingApproval", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingConfirmationRow("123456", time.Now().Add(time.Minute)))
		mock.ExpectRollback()

		_, _, err = repo.Approve(context.Background(), 7)
		assert.ErrorIs(t, err, ErrNotPendingApproval)
	})

	t.Run("AlreadyApproved", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		row := pendingApprovalRow()
		row[7] = string(DispositionApproved)
		row[13] = uint(88)

		mock.ExpectBegin()
		expectLock(mock, row)
		mock.ExpectRollback()

		_, _, err = repo.Approve(context.Background(), 7)
		assert.ErrorIs(t, err, ErrAlreadyPromoted)
	})
}

func TestRepository_Reject(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		reason := "Sin capacidad"
		mock.ExpectBegin()
		expectLock(mock, pendingApprovalRow())
		mock.ExpectExec("UPDATE preorders").
			WithArgs(DispositionRejected, &reason, uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		snapshot, err := repo.Reject(context.Background(), 7, &reason)
		require.NoError(t, err)
		assert.Equal(t, DispositionRejected, snapshot.Disposition)
		require.NotNil(t, snapshot.RejectionReason)
		assert.Equal(t, reason, *snapshot.RejectionReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PendingConfirmationNotRejectable", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		expectLock(mock, pendingConfirmationRow("123456", time.Now().Add(time.Minute)))
		mock.ExpectRollback()

		_, err = repo.Reject(context.Background(), 7, nil)
		assert.ErrorIs(t, err, ErrNotPendingApproval)
	})
}

func TestBuildNotes(t *testing.T) {
	note := "Sin sal"
	deposit := 1234.4

	t.Run("NotesAndDeposit", func(t *testing.T) {
		got := buildNotes(&note, &deposit)
		require.NotNil(t, got)
		assert.Equal(t, "Sin sal | Deposit: $1234", *got)
	})

	t.Run("DepositOnly", func(t *testing.T) {
		got := buildNotes(nil, &deposit)
		require.NotNil(t, got)
		assert.Equal(t, "Deposit: $1234", *got)
	})

	t.Run("NotesOnly", func(t *testing.T) {
		got := buildNotes(&note, nil)
		require.NotNil(t, got)
		assert.Equal(t, "Sin sal", *got)
	})

	t.Run("Neither", func(t *testing.T) {
		assert.Nil(t, buildNotes(nil, nil))
	})
}
