package ports

import (
	"context"

	"github.com/Apurer/order-engine/internal/domains/notifications/domain"
)

// Notifier delivers a message to the external notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, msg domain.Message) error
}

// Sender is what order use cases depend on. Send never blocks on delivery and never fails.
type Sender interface {
	Send(ctx context.Context, orderID string, kind domain.Kind, payload map[string]any)
}
