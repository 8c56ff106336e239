package preorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"panaderia-be/internal/catalog"
	"panaderia-be/internal/logger"
	"panaderia-be/internal/metrics"
	"panaderia-be/internal/notify"
	"panaderia-be/internal/order"

	"go.uber.org/zap"
)

// maxRejectionReason bounds the stored free-text reason.
const maxRejectionReason = 255

// SubmitInput is a public, unauthenticated pre-order submission.
type SubmitInput struct {
	Fulfillment  string
	DeliveryDate string
	DeliveryTime string
	Notes        *string
	Contact      order.ContactInput
	Items        []order.LineItem
}

type Config struct {
	WindowDays int
}

type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
	ConfirmByPIN(ctx context.Context, preID uint, pin string, deposit *float64) (uint, error)
	PreviewByPIN(ctx context.Context, preID uint, pin string) (*PreOrder, error)
	Approve(ctx context.Context, preID uint, notifyCustomer bool) (uint, error)
	Reject(ctx context.Context, preID uint, reason string, notifyCustomer bool) error
	ListPendingApproval(ctx context.Context) ([]*PreOrder, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	notifier    notify.Gateway
	policy      ApprovalPolicy
	pins        PINIssuer
	cfg         Config
	engine      *metrics.Engine
	now         func() time.Time
}

func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	notifier notify.Gateway,
	policy ApprovalPolicy,
	pins PINIssuer,
	cfg Config,
	engine *metrics.Engine,
) Service {
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		notifier:    notifier,
		policy:      policy,
		pins:        pins,
		cfg:         cfg,
		engine:      engine,
		now:         time.Now,
	}
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	log := logger.Op(ctx, "service", "Submit").With(
		zap.Int("item_count", len(in.Items)),
	)

	fulfillment, err := order.ParseFulfillment(in.Fulfillment)
	if err != nil {
		return nil, err
	}
	if err := order.ValidateSchedule(in.DeliveryDate, in.DeliveryTime, s.cfg.WindowDays, s.now()); err != nil {
		return nil, err
	}
	if err := order.ValidateItems(in.Items); err != nil {
		return nil, err
	}
	if err := s.resolveProducts(ctx, in.Items); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Contact.Name)
	email := strings.ToLower(strings.TrimSpace(in.Contact.Email))
	phone := strings.TrimSpace(in.Contact.Phone)
	addr := strings.TrimSpace(in.Contact.Address)

	if name == "" {
		return nil, order.Invalid("customer name is required")
	}
	if email == "" && phone == "" {
		return nil, order.Invalid("an email or a phone number is required")
	}
	if fulfillment == order.FulfillmentDelivery && addr == "" {
		return nil, order.Invalid("a delivery address is required for delivery orders")
	}

	p := &PreOrder{
		ContactName:  name,
		DeliveryDate: in.DeliveryDate,
		DeliveryTime: in.DeliveryTime,
		Fulfillment:  fulfillment,
		Notes:        in.Notes,
		Items:        in.Items,
	}
	if email != "" {
		p.ContactEmail = &email
	}
	if phone != "" {
		p.ContactPhone = &phone
	}
	if addr != "" {
		p.DeliveryAddress = &addr
	}

	result := &SubmitResult{}
	if s.policy.RequiresApproval(in.Items) {
		p.Disposition = DispositionPendingApproval
	} else {
		pin, expiresAt := s.pins.Issue()
		p.Disposition = DispositionPendingConfirmation
		p.ConfirmPIN = &pin
		p.ConfirmExpiresAt = &expiresAt
		result.ConfirmPIN = &pin
		result.ConfirmExpiresAt = &expiresAt
	}
	result.RequiresApproval = p.Disposition.RequiresApproval()

	preID, err := s.repo.CreateTx(ctx, p)
	if err != nil {
		log.Error("failed to persist pre-order", zap.Error(err))
		return nil, err
	}
	s.engine.PreOrdersCreated.Inc()
	result.ID = preID

	log.Info("pre-order submitted",
		zap.Uint("preorder_id", preID),
		zap.Bool("requires_approval", result.RequiresApproval),
	)
	return result, nil
}

func (s *service) ConfirmByPIN(ctx context.Context, preID uint, pin string, deposit *float64) (uint, error) {
	if pin == "" {
		return 0, order.Invalid("confirmation code is required")
	}

	orderID, snapshot, err := s.repo.PromoteByPIN(ctx, preID, pin, deposit, s.now())
	if err != nil {
		return 0, err
	}
	s.engine.Promotions.Inc()
	s.engine.OrdersCreated.Inc()

	s.notifyPromoted(ctx, orderID, snapshot,
		fmt.Sprintf("Pedido #%d confirmado en caja", orderID))
	return orderID, nil
}

// PreviewByPIN re-runs the full confirmation precondition chain without
// writing anything, so the operator can show a summary before committing.
// A prior preview never authorizes a later call.
func (s *service) PreviewByPIN(ctx context.Context, preID uint, pin string) (*PreOrder, error) {
	if pin == "" {
		return nil, order.Invalid("confirmation code is required")
	}

	p, err := s.repo.GetWithItems(ctx, preID)
	if err != nil {
		return nil, err
	}

	switch {
	case p.Disposition == DispositionPendingApproval:
		return nil, ErrRequiresApproval
	case p.Disposition == DispositionApproved || p.PromotedOrderID != nil:
		return nil, ErrAlreadyPromoted
	case p.ConfirmPIN == nil:
		return nil, ErrNoActivePIN
	case pin != *p.ConfirmPIN:
		return nil, ErrPINMismatch
	case p.ConfirmExpiresAt == nil || s.now().After(*p.ConfirmExpiresAt):
		return nil, ErrPINExpired
	case len(p.Items) == 0:
		return nil, ErrNoItems
	}

	// The stored code never leaves the service on a read.
	p.ConfirmPIN = nil
	return p, nil
}

func (s *service) Approve(ctx context.Context, preID uint, notifyCustomer bool) (uint, error) {
	orderID, snapshot, err := s.repo.Approve(ctx, preID)
	if err != nil {
		return 0, err
	}
	s.engine.Promotions.Inc()
	s.engine.OrdersCreated.Inc()

	if notifyCustomer {
		s.notifyPromoted(ctx, orderID, snapshot,
			fmt.Sprintf("Pedido #%d aprobado", orderID))
	}
	return orderID, nil
}

func (s *service) Reject(ctx context.Context, preID uint, reason string, notifyCustomer bool) error {
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		if len(trimmed) > maxRejectionReason {
			// Back off to a rune boundary so the cut never splits a
			// multi-byte character.
			cut := maxRejectionReason
			for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
				cut--
			}
			trimmed = trimmed[:cut]
		}
		reasonPtr = &trimmed
	}

	snapshot, err := s.repo.Reject(ctx, preID, reasonPtr)
	if err != nil {
		return err
	}
	s.engine.Rejections.Inc()

	if notifyCustomer && snapshot.ContactEmail != nil {
		rej := notify.Rejection{
			PreOrderID:   snapshot.ID,
			CustomerName: snapshot.ContactName,
			Email:        *snapshot.ContactEmail,
			DeliveryDate: snapshot.DeliveryDate,
			DeliveryTime: snapshot.DeliveryTime,
		}
		if snapshot.RejectionReason != nil {
			rej.Reason = *snapshot.RejectionReason
		}
		if err := s.notifier.PreOrderRejected(ctx, rej); err != nil {
			s.engine.NotificationFailures.Inc()
			logger.FromCtx(ctx).Warn("rejection notification failed",
				zap.Uint("preorder_id", preID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *service) ListPendingApproval(ctx context.Context) ([]*PreOrder, error) {
	return s.repo.ListPendingApproval(ctx)
}

func (s *service) resolveProducts(ctx context.Context, items []order.LineItem) error {
	seen := make(map[uint]bool, len(items))
	for _, it := range items {
		if seen[it.ProductID] {
			continue
		}
		p, err := s.catalogRepo.GetProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return order.Invalid("unknown product: %d", it.ProductID)
			}
			return err
		}
		if !p.Active {
			return order.Invalid("product %d is not available", it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

// notifyPromoted runs after the promoting transaction has committed.
// Failures are logged and counted, never surfaced to the caller.
func (s *service) notifyPromoted(ctx context.Context, orderID uint, p *PreOrder, subject string) {
	summary := notify.OrderSummary{
		OrderID:      orderID,
		CustomerName: p.ContactName,
		DeliveryDate: p.DeliveryDate,
		DeliveryTime: p.DeliveryTime,
		Fulfillment:  string(p.Fulfillment),
	}
	if p.ContactEmail != nil {
		summary.Email = *p.ContactEmail
	}
	if p.ContactPhone != nil {
		summary.Phone = *p.ContactPhone
	}
	if p.DeliveryAddress != nil {
		summary.Address = *p.DeliveryAddress
	}
	if p.Notes != nil {
		summary.Notes = *p.Notes
	}
	for _, it := range p.Items {
		summary.Items = append(summary.Items, notify.ItemSummary{
			Product:  it.ProductName,
			Unit:     string(it.Unit),
			Quantity: it.Quantity,
		})
	}

	if err := s.notifier.OrderConfirmed(ctx, subject, summary); err != nil {
		s.engine.NotificationFailures.Inc()
		logger.FromCtx(ctx).Warn("promotion notification failed",
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
	}
}
