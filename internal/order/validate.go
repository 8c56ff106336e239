package order

import (
	"math"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ParseFulfillment validates the fulfillment mode enum.
func ParseFulfillment(s string) (Fulfillment, error) {
	switch Fulfillment(s) {
	case FulfillmentPickup, FulfillmentDelivery:
		return Fulfillment(s), nil
	default:
		return "", Invalid("invalid fulfillment mode: %q", s)
	}
}

// ParseStatus validates a caller-supplied target status.
func ParseStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusDelivered, StatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", Invalid("invalid status: %q", s)
	}
}

// ValidateSchedule checks that the delivery date lies inside the accepted
// window: from tomorrow up to tomorrow plus windowDays, in the submitter's
// local calendar. Today is always excluded.
func ValidateSchedule(date, timeOfDay string, windowDays int, now time.Time) error {
	if date == "" || timeOfDay == "" {
		return Invalid("delivery date and time are required")
	}
	d, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return Invalid("invalid delivery date: %q", date)
	}
	if _, err := time.Parse(timeLayout, timeOfDay); err != nil {
		return Invalid("invalid delivery time: %q", timeOfDay)
	}

	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	maxDate := tomorrow.AddDate(0, 0, windowDays)

	if d.Before(tomorrow) || d.After(maxDate) {
		return Invalid("delivery date must be between %s and %s",
			tomorrow.Format(dateLayout), maxDate.Format(dateLayout))
	}
	return nil
}

// ValidateItems checks the line items of a submission: at least one item,
// positive quantities, whole numbers for count units and at most three
// decimal places for weight units.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return Invalid("at least one item is required")
	}
	for i, it := range items {
		if it.ProductID == 0 {
			return Invalid("item %d: missing product reference", i)
		}
		if it.Unit != UnitWeight && it.Unit != UnitCount {
			return Invalid("item %d: invalid unit %q", i, it.Unit)
		}
		if !(it.Quantity > 0) {
			return Invalid("item %d: quantity must be positive", i)
		}
		switch it.Unit {
		case UnitCount:
			if it.Quantity != math.Trunc(it.Quantity) {
				return Invalid("item %d: count quantities must be whole numbers", i)
			}
		case UnitWeight:
			scaled := it.Quantity * 1000
			if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
				return Invalid("item %d: weight quantities allow at most 3 decimals", i)
			}
		}
	}
	return nil
}
