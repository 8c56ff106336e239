package notify

import "context"

type ItemSummary struct {
	Product  string
	Unit     string
	Quantity float64
}

type OrderSummary struct {
	OrderID      uint
	CustomerName string
	Email        string
	Phone        string
	DeliveryDate string
	DeliveryTime string
	Fulfillment  string
	Address      string
	Notes        string
	Items        []ItemSummary
}

type Rejection struct {
	PreOrderID   uint
	CustomerName string
	Email        string
	DeliveryDate string
	DeliveryTime string
	Reason       string
}

// Gateway sends customer-facing messages. It is always invoked after the
// surrounding transaction has committed; a returned error is logged and
// counted by the caller, never propagated to the request.
type Gateway interface {
	OrderConfirmed(ctx context.Context, subject string, o OrderSummary) error
	PreOrderRejected(ctx context.Context, rej Rejection) error
}
