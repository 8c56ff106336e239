package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"panaderia-be/internal/address"
	"panaderia-be/internal/catalog"
	"panaderia-be/internal/logger"
	"panaderia-be/internal/metrics"
	"panaderia-be/internal/notify"
	"panaderia-be/internal/utils"

	"go.uber.org/zap"
)

type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// DirectSubmission is an order entered by an authenticated customer or by
// staff on behalf of a walk-up customer. It never passes through the
// pre-order stage.
type DirectSubmission struct {
	Fulfillment  string
	DeliveryDate string
	DeliveryTime string
	Notes        *string
	Items        []LineItem

	// Customer path: a saved address resolved by id.
	AddressID *uint
	// Staff path: inline contact block.
	Contact *ContactInput

	Notify bool
}

type Config struct {
	WindowDays int
}

type Service interface {
	CreateDirect(ctx context.Context, in DirectSubmission) (uint, error)
	Get(ctx context.Context, orderID uint) (*Order, error)
	List(ctx context.Context, page, limit int, history bool) (*Page, error)
	UpdateStatus(ctx context.Context, orderID uint, status string) error
	Delete(ctx context.Context, orderID uint) error
	Notify(ctx context.Context, orderID uint, subject string) error
}

type service struct {
	repo        Repository
	addressRepo address.Repository
	catalogRepo catalog.Repository
	notifier    notify.Gateway
	cfg         Config
	engine      *metrics.Engine
	now         func() time.Time
}

func NewService(
	repo Repository,
	addressRepo address.Repository,
	catalogRepo catalog.Repository,
	notifier notify.Gateway,
	cfg Config,
	engine *metrics.Engine,
) Service {
	return &service{
		repo:        repo,
		addressRepo: addressRepo,
		catalogRepo: catalogRepo,
		notifier:    notifier,
		cfg:         cfg,
		engine:      engine,
		now:         time.Now,
	}
}

func (s *service) CreateDirect(ctx context.Context, in DirectSubmission) (uint, error) {
	log := logger.Op(ctx, "service", "CreateDirect").With(
		zap.Int("item_count", len(in.Items)),
	)

	fulfillment, err := ParseFulfillment(in.Fulfillment)
	if err != nil {
		return 0, err
	}
	if err := ValidateSchedule(in.DeliveryDate, in.DeliveryTime, s.cfg.WindowDays, s.now()); err != nil {
		return 0, err
	}
	if err := ValidateItems(in.Items); err != nil {
		return 0, err
	}
	names, err := s.resolveProducts(ctx, in.Items)
	if err != nil {
		return 0, err
	}

	o := &Order{
		DeliveryDate: in.DeliveryDate,
		DeliveryTime: in.DeliveryTime,
		Fulfillment:  fulfillment,
		Status:       StatusPending,
		Notes:        in.Notes,
	}

	role := utils.GetUserRoleFromContext(ctx)
	if role == utils.RoleCustomer {
		userID, ok := utils.GetUserIDFromContext(ctx)
		if !ok {
			return 0, Invalid("authentication required")
		}
		o.CustomerUserID = &userID
		if email := utils.GetUserEmailFromContext(ctx); email != "" {
			o.ContactEmail = &email
		}
		if fulfillment == FulfillmentDelivery {
			if in.AddressID == nil {
				return 0, Invalid("a delivery address must be selected for delivery orders")
			}
			addr, err := s.addressRepo.GetUserAddress(ctx, *in.AddressID, userID)
			if err != nil {
				return 0, err
			}
			o.DeliveryAddress = &addr.Text
		}
	} else {
		// Staff entering an order for a walk-up customer.
		if in.Contact == nil {
			return 0, Invalid("customer contact block is required")
		}
		name := strings.TrimSpace(in.Contact.Name)
		if name == "" {
			return 0, Invalid("customer name is required")
		}
		o.ContactName = utils.StrPtr(name)
		if email := strings.ToLower(strings.TrimSpace(in.Contact.Email)); email != "" {
			o.ContactEmail = utils.StrPtr(email)
		}
		if phone := strings.TrimSpace(in.Contact.Phone); phone != "" {
			o.ContactPhone = utils.StrPtr(phone)
		}
		if fulfillment == FulfillmentDelivery {
			addr := strings.TrimSpace(in.Contact.Address)
			if addr == "" {
				return 0, Invalid("a delivery address is required for delivery orders")
			}
			o.DeliveryAddress = utils.StrPtr(addr)
		}
	}

	orderID, err := s.repo.CreateOrderTx(ctx, o, in.Items)
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return 0, err
	}
	s.engine.OrdersCreated.Inc()

	if in.Notify {
		s.notifyConfirmed(ctx, orderID, o, in.Items, names,
			fmt.Sprintf("Pedido #%d confirmado", orderID))
	}

	log.Info("direct order created", zap.Uint("order_id", orderID))
	return orderID, nil
}

// Get returns one order with its items. A customer asking for an order
// that is not theirs gets the same answer as for one that does not exist.
func (s *service) Get(ctx context.Context, orderID uint) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if utils.GetUserRoleFromContext(ctx) == utils.RoleCustomer {
		userID, ok := utils.GetUserIDFromContext(ctx)
		if !ok {
			return nil, Invalid("authentication required")
		}
		if o.CustomerUserID == nil || *o.CustomerUserID != userID {
			return nil, ErrOrderNotFound
		}
	}
	return o, nil
}

func (s *service) List(ctx context.Context, page, limit int, history bool) (*Page, error) {
	f := ListFilter{Delivered: history, Page: page, Limit: limit}

	// Customers only ever see their own orders.
	if utils.GetUserRoleFromContext(ctx) == utils.RoleCustomer {
		userID, ok := utils.GetUserIDFromContext(ctx)
		if !ok {
			return nil, Invalid("authentication required")
		}
		f.CustomerUserID = &userID
	}

	return s.repo.ListOrders(ctx, f)
}

func (s *service) UpdateStatus(ctx context.Context, orderID uint, status string) error {
	target, err := ParseStatus(status)
	if err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, orderID, target)
}

func (s *service) Delete(ctx context.Context, orderID uint) error {
	return s.repo.Delete(ctx, orderID)
}

// Notify re-sends the confirmation message for an existing order.
// Delivery failure is reported to the caller here because resending is the
// whole point of the operation.
func (s *service) Notify(ctx context.Context, orderID uint, subject string) error {
	data, err := s.repo.NotificationData(ctx, orderID)
	if err != nil {
		return err
	}
	if subject == "" {
		subject = fmt.Sprintf("Confirmación de pedido #%d", orderID)
	}
	if err := s.notifier.OrderConfirmed(ctx, subject, *data); err != nil {
		s.engine.NotificationFailures.Inc()
		return err
	}
	return nil
}

func (s *service) resolveProducts(ctx context.Context, items []LineItem) (map[uint]string, error) {
	names := make(map[uint]string, len(items))
	for _, it := range items {
		if _, ok := names[it.ProductID]; ok {
			continue
		}
		p, err := s.catalogRepo.GetProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, Invalid("unknown product: %d", it.ProductID)
			}
			return nil, err
		}
		if !p.Active {
			return nil, Invalid("product %d is not available", it.ProductID)
		}
		names[it.ProductID] = p.Name
	}
	return names, nil
}

// notifyConfirmed runs after the transaction has committed. Failures are
// logged and counted, never returned.
func (s *service) notifyConfirmed(ctx context.Context, orderID uint, o *Order, items []LineItem, names map[uint]string, subject string) {
	summary := notify.OrderSummary{
		OrderID:      orderID,
		DeliveryDate: o.DeliveryDate,
		DeliveryTime: o.DeliveryTime,
		Fulfillment:  string(o.Fulfillment),
	}
	if o.ContactName != nil {
		summary.CustomerName = *o.ContactName
	}
	if o.ContactEmail != nil {
		summary.Email = *o.ContactEmail
	}
	if o.ContactPhone != nil {
		summary.Phone = *o.ContactPhone
	}
	if o.DeliveryAddress != nil {
		summary.Address = *o.DeliveryAddress
	}
	if o.Notes != nil {
		summary.Notes = *o.Notes
	}
	for _, it := range items {
		summary.Items = append(summary.Items, notify.ItemSummary{
			Product:  names[it.ProductID],
			Unit:     string(it.Unit),
			Quantity: it.Quantity,
		})
	}

	if err := s.notifier.OrderConfirmed(ctx, subject, summary); err != nil {
		s.engine.NotificationFailures.Inc()
		logger.FromCtx(ctx).Warn("order notification failed",
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
	}
}
