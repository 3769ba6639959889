// Package notify carries admin-facing notification delivery. The core fires
// events at the Gateway and never waits on it.
package notify

import (
	"go.uber.org/zap"

	"wavefood-admin/internal/order"
)

// Gateway renders new-order alerts, error popups and success toasts.
// Implementations must not block the caller.
type Gateway interface {
	NewOrder(o order.Order)
	Success(message string)
	Error(message string, cause error)
}

// LogGateway renders notifications as structured log lines. It stands in for
// the platform notification channel in headless deployments.
type LogGateway struct {
	log *zap.Logger
}

func NewLogGateway(log *zap.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) NewOrder(o order.Order) {
	g.log.Info("New Order Received",
		zap.String("from", o.UserName),
		zap.String("push_key", o.PushKey),
		zap.String("total_price", o.TotalPrice),
	)
}

func (g *LogGateway) Success(message string) {
	g.log.Info(message)
}

func (g *LogGateway) Error(message string, cause error) {
	g.log.Error(message, zap.Error(cause))
}
