package order

import "time"

type Unit string

const (
	UnitWeight Unit = "kg"
	UnitCount  Unit = "un"
)

type Fulfillment string

const (
	FulfillmentPickup   Fulfillment = "pickup"
	FulfillmentDelivery Fulfillment = "delivery"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// LineItem is one product position of an order or pre-order. Count-unit
// quantities are whole numbers; weight-unit quantities carry up to three
// decimal places.
type LineItem struct {
	ID        uint
	ProductID uint
	Unit      Unit
	Quantity  float64

	// Joined for display, never persisted on the item row.
	ProductName string
}

type Order struct {
	ID              uint
	CustomerUserID  *uint
	ContactName     *string
	ContactEmail    *string
	ContactPhone    *string
	DeliveryDate    string
	DeliveryTime    string
	Fulfillment     Fulfillment
	Status          OrderStatus
	DeliveryAddress *string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []LineItem
}

// Summary is one row of the paginated listings, with the product detail
// pre-joined into a display string.
type Summary struct {
	ID              uint
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	DeliveryDate    string
	DeliveryTime    string
	Fulfillment     Fulfillment
	Status          OrderStatus
	DeliveryAddress string
	ProductsSummary string
}

type Page struct {
	Data       []*Summary
	Page       int
	Limit      int
	Total      int64
	TotalPages int64
}
