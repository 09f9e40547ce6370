package domain

import "time"

// Kind names the notification template a downstream renderer should use.
type Kind string

const (
	KindOrderPlaced            Kind = "order_placed"
	KindPaymentConfirmed       Kind = "payment_confirmed"
	KindOrderCancelled         Kind = "order_cancelled"
	KindOrderStatusChanged     Kind = "order_status_changed"
	KindReconciliationRequired Kind = "reconciliation_required"
	KindCartAbandoned          Kind = "cart_abandoned"
)

// Message is a single fire-and-forget notification request.
type Message struct {
	OrderID    string         `json:"orderId,omitempty"`
	Kind       Kind           `json:"kind"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
