package notify

import (
	"context"

	"go.uber.org/zap"
)

// NopGateway logs instead of sending. Used when no SMTP host is configured
// and in tests.
type NopGateway struct {
	Log *zap.Logger
}

func (g *NopGateway) OrderConfirmed(ctx context.Context, subject string, o OrderSummary) error {
	if g.Log != nil {
		g.Log.Info("notification skipped (no mailer configured)",
			zap.String("subject", subject),
			zap.Uint("order_id", o.OrderID),
		)
	}
	return nil
}

func (g *NopGateway) PreOrderRejected(ctx context.Context, rej Rejection) error {
	if g.Log != nil {
		g.Log.Info("rejection notification skipped (no mailer configured)",
			zap.Uint("preorder_id", rej.PreOrderID),
		)
	}
	return nil
}
