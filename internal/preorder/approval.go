package preorder

import "panaderia-be/internal/order"

// ApprovalPolicy decides whether a candidate order needs manual review
// before fulfillment. Pure, deterministic, safe to call outside any
// transaction.
type ApprovalPolicy struct {
	CountLimit  float64
	WeightLimit float64
}

// RequiresApproval returns true if any single item's quantity meets or
// exceeds the per-unit threshold. Thresholds are inclusive.
func (p ApprovalPolicy) RequiresApproval(items []order.LineItem) bool {
	for _, it := range items {
		switch it.Unit {
		case order.UnitCount:
			if it.Quantity >= p.CountLimit {
				return true
			}
		case order.UnitWeight:
			if it.Quantity >= p.WeightLimit {
				return true
			}
		}
	}
	return false
}
