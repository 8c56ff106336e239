package preorder

import "errors"

var (
	// -- Existence --
	ErrNotFound = errors.New("pre-order not found")

	// -- Disposition preconditions --
	ErrRequiresApproval   = errors.New("pre-order requires administrative approval")
	ErrAlreadyPromoted    = errors.New("pre-order was already promoted to an order")
	ErrNotPendingApproval = errors.New("pre-order is not pending approval")
	ErrNoItems            = errors.New("pre-order has no items")

	// -- PIN confirmation --
	ErrNoActivePIN = errors.New("no active confirmation code for this pre-order")
	ErrPINMismatch = errors.New("confirmation code mismatch")
	ErrPINExpired  = errors.New("confirmation code expired")

	// -- Concurrency --
	ErrConflict = errors.New("concurrent update lost the race, retry")
)
