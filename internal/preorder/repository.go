package preorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"panaderia-be/internal/logger"
	"panaderia-be/internal/metrics"
	"panaderia-be/internal/order"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateTx(ctx context.Context, p *PreOrder) (uint, error)
	GetWithItems(ctx context.Context, preID uint) (*PreOrder, error)
	ListPendingApproval(ctx context.Context) ([]*PreOrder, error)

	// PromoteByPIN atomically creates an order from the pre-order and
	// deletes the pre-order. All preconditions are checked under a row
	// lock inside the same transaction.
	PromoteByPIN(ctx context.Context, preID uint, pin string, deposit *float64, now time.Time) (uint, *PreOrder, error)

	// Approve atomically creates an order and retains the pre-order as an
	// audit record (disposition approved, promoted_order_id set).
	Approve(ctx context.Context, preID uint) (uint, *PreOrder, error)

	// Reject marks the pre-order terminally rejected. No order is created.
	Reject(ctx context.Context, preID uint, reason *string) (*PreOrder, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, p *PreOrder) (uint, error) {
	log := logger.Op(ctx, "repository", "CreateTx").With(
		zap.Int("item_count", len(p.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var preID uint
	err = tx.QueryRowContext(ctx, `
		INSERT INTO preorders (
			contact_name, contact_email, contact_phone,
			delivery_date, delivery_time, fulfillment, disposition,
			delivery_address, notes, confirm_pin, confirm_expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`,
		p.ContactName, p.ContactEmail, p.ContactPhone,
		p.DeliveryDate, p.DeliveryTime, p.Fulfillment, p.Disposition,
		p.DeliveryAddress, p.Notes, p.ConfirmPIN, p.ConfirmExpiresAt,
	).Scan(&preID)
	if err != nil {
		log.Error("failed to insert pre-order", zap.Error(err))
		return 0, err
	}

	for i, it := range p.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO preorder_items (preorder_id, product_id, unit, quantity)
			VALUES ($1,$2,$3,$4)
		`, preID, it.ProductID, it.Unit, it.Quantity)
		if err != nil {
			log.Error("failed to insert pre-order item",
				zap.Int("item_index", i),
				zap.Error(err),
			)
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit pre-order transaction", zap.Error(err))
		return 0, err
	}
	committed = true

	log.Info("pre-order created",
		zap.Uint("preorder_id", preID),
		zap.String("disposition", string(p.Disposition)),
	)
	return preID, nil
}

const preOrderColumns = `
	id, contact_name, contact_email, contact_phone,
	to_char(delivery_date, 'YYYY-MM-DD'),
	to_char(delivery_time, 'HH24:MI'),
	fulfillment, disposition, delivery_address, notes,
	confirm_pin, confirm_expires_at, rejection_reason, promoted_order_id,
	created_at`

func scanPreOrder(row *sql.Row) (*PreOrder, error) {
	var p PreOrder
	err := row.Scan(
		&p.ID, &p.ContactName, &p.ContactEmail, &p.ContactPhone,
		&p.DeliveryDate, &p.DeliveryTime,
		&p.Fulfillment, &p.Disposition, &p.DeliveryAddress, &p.Notes,
		&p.ConfirmPIN, &p.ConfirmExpiresAt, &p.RejectionReason, &p.PromotedOrderID,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadItems(ctx context.Context, q querier, preID uint) ([]order.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pi.id, pi.product_id, pi.unit, pi.quantity, p.name
		FROM preorder_items pi
		JOIN products p ON p.id = pi.product_id
		WHERE pi.preorder_id = $1
		ORDER BY pi.id
	`, preID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.LineItem
	for rows.Next() {
		var it order.LineItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Unit, &it.Quantity, &it.ProductName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) GetWithItems(ctx context.Context, preID uint) (*PreOrder, error) {
	p, err := scanPreOrder(r.db.QueryRowContext(ctx,
		`SELECT`+preOrderColumns+` FROM preorders WHERE id = $1`, preID))
	if err != nil {
		return nil, err
	}

	p.Items, err = loadItems(ctx, r.db, preID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) ListPendingApproval(ctx context.Context) ([]*PreOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+preOrderColumns+`
		FROM preorders
		WHERE disposition = $1
		ORDER BY delivery_date ASC, delivery_time ASC, id ASC
	`, DispositionPendingApproval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*PreOrder
	for rows.Next() {
		var p PreOrder
		if err := rows.Scan(
			&p.ID, &p.ContactName, &p.ContactEmail, &p.ContactPhone,
			&p.DeliveryDate, &p.DeliveryTime,
			&p.Fulfillment, &p.Disposition, &p.DeliveryAddress, &p.Notes,
			&p.ConfirmPIN, &p.ConfirmExpiresAt, &p.RejectionReason, &p.PromotedOrderID,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range list {
		p.Items, err = loadItems(ctx, r.db, p.ID)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// lockPreOrder reads the row with a row-level write lock. Every
// disposition check must happen after this call, inside the same
// transaction, so two racing promotions serialize.
func lockPreOrder(ctx context.Context, tx *sql.Tx, preID uint) (*PreOrder, error) {
	return scanPreOrder(tx.QueryRowContext(ctx,
		`SELECT`+preOrderColumns+` FROM preorders WHERE id = $1 FOR UPDATE`, preID))
}

func (r *repository) PromoteByPIN(ctx context.Context, preID uint, pin string, deposit *float64, now time.Time) (uint, *PreOrder, error) {
	timer := metrics.StartTimer()
	log := logger.Op(ctx, "repository", "PromoteByPIN").With(
		zap.Uint("preorder_id", preID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := lockPreOrder(ctx, tx, preID)
	if err != nil {
		return 0, nil, wrapConflict(err)
	}

	switch {
	case p.Disposition == DispositionPendingApproval:
		return 0, nil, ErrRequiresApproval
	case p.Disposition == DispositionApproved || p.PromotedOrderID != nil:
		return 0, nil, ErrAlreadyPromoted
	case p.ConfirmPIN == nil:
		return 0, nil, ErrNoActivePIN
	case pin != *p.ConfirmPIN:
		// Opaque string comparison; "007" and "7" are different codes.
		return 0, nil, ErrPINMismatch
	case p.ConfirmExpiresAt == nil || now.After(*p.ConfirmExpiresAt):
		return 0, nil, ErrPINExpired
	}

	p.Items, err = loadItems(ctx, tx, preID)
	if err != nil {
		return 0, nil, err
	}
	if len(p.Items) == 0 {
		return 0, nil, ErrNoItems
	}

	notes := buildNotes(p.Notes, deposit)
	orderID, err := insertOrderFromPreOrder(ctx, tx, p, notes)
	if err != nil {
		log.Error("failed to promote pre-order", zap.Error(err))
		return 0, nil, wrapConflict(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM preorder_items WHERE preorder_id = $1`, preID); err != nil {
		return 0, nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM preorders WHERE id = $1`, preID); err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, wrapConflict(err)
	}
	committed = true

	p.Notes = notes
	p.PromotedOrderID = &orderID
	log.Info("pre-order promoted by PIN",
		zap.Uint("order_id", orderID),
		zap.Duration("took", timer.Duration()),
	)
	return orderID, p, nil
}

func (r *repository) Approve(ctx context.Context, preID uint) (uint, *PreOrder, error) {
	timer := metrics.StartTimer()
	log := logger.Op(ctx, "repository", "Approve").With(
		zap.Uint("preorder_id", preID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := lockPreOrder(ctx, tx, preID)
	if err != nil {
		return 0, nil, wrapConflict(err)
	}

	if p.PromotedOrderID != nil || p.Disposition == DispositionApproved {
		return 0, nil, ErrAlreadyPromoted
	}
	if p.Disposition != DispositionPendingApproval {
		return 0, nil, ErrNotPendingApproval
	}

	p.Items, err = loadItems(ctx, tx, preID)
	if err != nil {
		return 0, nil, err
	}
	if len(p.Items) == 0 {
		return 0, nil, ErrNoItems
	}

	orderID, err := insertOrderFromPreOrder(ctx, tx, p, p.Notes)
	if err != nil {
		log.Error("failed to approve pre-order", zap.Error(err))
		return 0, nil, wrapConflict(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE preorders
		SET disposition = $1, promoted_order_id = $2,
		    confirm_pin = NULL, confirm_expires_at = NULL, updated_at = NOW()
		WHERE id = $3
	`, DispositionApproved, orderID, preID)
	if err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, wrapConflict(err)
	}
	committed = true

	p.Disposition = DispositionApproved
	p.PromotedOrderID = &orderID
	log.Info("pre-order approved and promoted",
		zap.Uint("order_id", orderID),
		zap.Duration("took", timer.Duration()),
	)
	return orderID, p, nil
}

func (r *repository) Reject(ctx context.Context, preID uint, reason *string) (*PreOrder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := lockPreOrder(ctx, tx, preID)
	if err != nil {
		return nil, wrapConflict(err)
	}

	if p.PromotedOrderID != nil || p.Disposition == DispositionApproved {
		return nil, ErrAlreadyPromoted
	}
	if p.Disposition != DispositionPendingApproval {
		return nil, ErrNotPendingApproval
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE preorders
		SET disposition = $1, rejection_reason = $2,
		    confirm_pin = NULL, confirm_expires_at = NULL, updated_at = NOW()
		WHERE id = $3
	`, DispositionRejected, reason, preID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapConflict(err)
	}
	committed = true

	p.Disposition = DispositionRejected
	p.RejectionReason = reason
	return p, nil
}

// insertOrderFromPreOrder copies the pre-order's fields and items into a
// fresh pending order within the caller's transaction.
func insertOrderFromPreOrder(ctx context.Context, tx *sql.Tx, p *PreOrder, notes *string) (uint, error) {
	var orderID uint
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			customer_user_id, contact_name, contact_email, contact_phone,
			delivery_date, delivery_time, fulfillment, status,
			delivery_address, notes
		) VALUES (NULL,$1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`,
		p.ContactName, p.ContactEmail, p.ContactPhone,
		p.DeliveryDate, p.DeliveryTime, p.Fulfillment, order.StatusPending,
		p.DeliveryAddress, notes,
	).Scan(&orderID)
	if err != nil {
		return 0, err
	}

	for _, it := range p.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, unit, quantity)
			VALUES ($1,$2,$3,$4)
		`, orderID, it.ProductID, it.Unit, it.Quantity)
		if err != nil {
			return 0, err
		}
	}
	return orderID, nil
}

// buildNotes appends the deposit taken at the point of sale to the
// pre-order's notes.
func buildNotes(notes *string, deposit *float64) *string {
	var parts []string
	if notes != nil && *notes != "" {
		parts = append(parts, *notes)
	}
	if deposit != nil && *deposit >= 0 {
		parts = append(parts, fmt.Sprintf("Deposit: $%d", int(math.Round(*deposit))))
	}
	if len(parts) == 0 {
		return notes
	}
	joined := strings.Join(parts, " | ")
	return &joined
}

// wrapConflict maps a serialization failure surfaced by the driver to the
// engine's conflict error; everything else passes through.
func wrapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" {
		return ErrConflict
	}
	return err
}
