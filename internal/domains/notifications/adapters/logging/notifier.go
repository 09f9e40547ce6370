package logging

import (
	"context"
	"log/slog"

	"github.com/Apurer/order-engine/internal/domains/notifications/domain"
	"github.com/Apurer/order-engine/internal/domains/notifications/ports"
)

var _ ports.Notifier = (*Notifier)(nil)

// Notifier writes notifications to the structured log. Used when no broker is configured.
type Notifier struct {
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, msg domain.Message) error {
	n.logger.LogAttrs(ctx, slog.LevelInfo, "notification",
		slog.String("order.id", msg.OrderID),
		slog.String("notification.kind", string(msg.Kind)),
		slog.Any("payload", msg.Payload))
	return nil
}
