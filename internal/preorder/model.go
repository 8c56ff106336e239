package preorder

import (
	"time"

	"panaderia-be/internal/order"
)

// Disposition is the sole source of truth for a pre-order's lifecycle
// state. Whether approval is required is derived from it, never stored
// separately.
type Disposition string

const (
	// Awaiting PIN confirmation at the point of sale.
	DispositionPendingConfirmation Disposition = "pending_confirmation"
	// Awaiting an administrator's decision.
	DispositionPendingApproval Disposition = "pending_approval"
	// Promoted by an administrator; row retained as an audit record.
	DispositionApproved Disposition = "approved"
	// Terminal. Never promoted.
	DispositionRejected Disposition = "rejected"
)

// RequiresApproval derives the approval flag reported to submitters;
// it is never stored alongside the disposition.
func (d Disposition) RequiresApproval() bool {
	return d == DispositionPendingApproval
}

type PreOrder struct {
	ID               uint
	ContactName      string
	ContactEmail     *string
	ContactPhone     *string
	DeliveryDate     string
	DeliveryTime     string
	Fulfillment      order.Fulfillment
	DeliveryAddress  *string
	Notes            *string
	Disposition      Disposition
	ConfirmPIN       *string
	ConfirmExpiresAt *time.Time
	RejectionReason  *string
	PromotedOrderID  *uint
	CreatedAt        time.Time
	Items            []order.LineItem
}

// SubmitResult is what the public submission caller gets back. The
// plaintext PIN appears here and nowhere else.
type SubmitResult struct {
	ID               uint
	RequiresApproval bool
	ConfirmPIN       *string
	ConfirmExpiresAt *time.Time
}
