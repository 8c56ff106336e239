package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"panaderia-be/internal/logger"
	"panaderia-be/internal/notify"

	"go.uber.org/zap"
)

type ListFilter struct {
	Delivered      bool
	CustomerUserID *uint
	Page           int
	Limit          int
}

type Repository interface {
	CreateOrderTx(ctx context.Context, o *Order, items []LineItem) (uint, error)
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	ListOrders(ctx context.Context, f ListFilter) (*Page, error)
	UpdateStatus(ctx context.Context, orderID uint, status OrderStatus) error
	Delete(ctx context.Context, orderID uint) error
	NotificationData(ctx context.Context, orderID uint) (*notify.OrderSummary, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// quantityDisplay renders "2.5" for 2.500 kg and "12" for 12 un.
const quantityDisplay = `trim(trailing '.' from trim(trailing '0' from to_char(oi.quantity, 'FM999990.000')))`

func (r *repository) CreateOrderTx(ctx context.Context, o *Order, items []LineItem) (uint, error) {
	log := logger.Op(ctx, "repository", "CreateOrderTx").With(
		zap.Int("item_count", len(items)),
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

	var orderID uint
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			customer_user_id, contact_name, contact_email, contact_phone,
			delivery_date, delivery_time, fulfillment, status,
			delivery_address, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`,
		o.CustomerUserID, o.ContactName, o.ContactEmail, o.ContactPhone,
		o.DeliveryDate, o.DeliveryTime, o.Fulfillment, StatusPending,
		o.DeliveryAddress, o.Notes,
	).Scan(&orderID)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return 0, err
	}

	for i, it := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, unit, quantity)
			VALUES ($1,$2,$3,$4)
		`, orderID, it.ProductID, it.Unit, it.Quantity)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.Error(err),
			)
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return 0, err
	}
	committed = true

	log.Info("order created", zap.Uint("order_id", orderID))
	return orderID, nil
}

func (r *repository) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT
			o.id, o.customer_user_id,
			o.contact_name, o.contact_email, o.contact_phone,
			to_char(o.delivery_date, 'YYYY-MM-DD'),
			to_char(o.delivery_time, 'HH24:MI'),
			o.fulfillment, o.status, o.delivery_address, o.notes,
			o.created_at, o.updated_at
		FROM orders o
		WHERE o.id = $1
	`, orderID).Scan(
		&o.ID, &o.CustomerUserID,
		&o.ContactName, &o.ContactEmail, &o.ContactPhone,
		&o.DeliveryDate, &o.DeliveryTime,
		&o.Fulfillment, &o.Status, &o.DeliveryAddress, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, oi.unit, oi.quantity, p.name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Unit, &it.Quantity, &it.ProductName); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *repository) ListOrders(ctx context.Context, f ListFilter) (*Page, error) {
	limit := f.Limit
	if limit < 1 {
		limit = 7
	}
	if limit > 200 {
		limit = 200
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	statusCond := "o.status <> 'delivered'"
	orderBy := "o.delivery_date DESC, o.delivery_time ASC"
	if f.Delivered {
		statusCond = "o.status = 'delivered'"
		orderBy = "o.delivery_date DESC, o.delivery_time DESC"
	}

	args := []any{}
	where := "WHERE " + statusCond
	if f.CustomerUserID != nil {
		where += " AND o.customer_user_id = $1"
		args = append(args, *f.CustomerUserID)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM orders o ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `
		SELECT
			o.id,
			COALESCE(o.contact_name, ''),
			COALESCE(o.contact_email, ''),
			COALESCE(o.contact_phone, ''),
			to_char(o.delivery_date, 'YYYY-MM-DD'),
			to_char(o.delivery_time, 'HH24:MI'),
			o.fulfillment,
			o.status,
			COALESCE(o.delivery_address, ''),
			COALESCE(string_agg(
				` + quantityDisplay + ` || upper(oi.unit) || ' ' || p.name,
				' · ' ORDER BY oi.id
			), '')
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p     ON p.id = oi.product_id
		` + where + `
		GROUP BY o.id
		ORDER BY ` + orderBy +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(
			&s.ID, &s.ContactName, &s.ContactEmail, &s.ContactPhone,
			&s.DeliveryDate, &s.DeliveryTime, &s.Fulfillment, &s.Status,
			&s.DeliveryAddress, &s.ProductsSummary,
		); err != nil {
			return nil, err
		}
		data = append(data, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Data:       data,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// UpdateStatus applies a status transition. Terminal states never re-enter
// pending; the current row is locked before the check so concurrent
// transitions serialize.
func (r *repository) UpdateStatus(ctx context.Context, orderID uint, status OrderStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current OrderStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if current.Terminal() {
		return ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, orderID,
	)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *repository) Delete(ctx context.Context, orderID uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) NotificationData(ctx context.Context, orderID uint) (*notify.OrderSummary, error) {
	query := `
		SELECT
			o.id,
			COALESCE(o.contact_name, ''),
			COALESCE(o.contact_email, ''),
			COALESCE(o.contact_phone, ''),
			to_char(o.delivery_date, 'YYYY-MM-DD'),
			to_char(o.delivery_time, 'HH24:MI'),
			o.fulfillment,
			COALESCE(o.delivery_address, ''),
			COALESCE(o.notes, '')
		FROM orders o
		WHERE o.id = $1
	`

	var s notify.OrderSummary
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&s.OrderID, &s.CustomerName, &s.Email, &s.Phone,
		&s.DeliveryDate, &s.DeliveryTime, &s.Fulfillment,
		&s.Address, &s.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.name, oi.unit, oi.quantity
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it notify.ItemSummary
		if err := rows.Scan(&it.Product, &it.Unit, &it.Quantity); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, it)
	}
	return &s, rows.Err()
}
