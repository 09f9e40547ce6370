package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/domains/payments/domain"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

// MarkerStore persists idempotency markers for handled events.
type MarkerStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	// Save inserts the marker and reports false if it already existed.
	Save(ctx context.Context, marker domain.ProcessedEvent) (bool, error)
}

// ClaimStore holds short-lived, shared claims on in-flight events so that
// concurrent deliveries to different instances never both process one event.
type ClaimStore interface {
	Claim(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Orders is the slice of order persistence the gateway needs.
type Orders interface {
	GetByID(ctx context.Context, id string) (*orderdomain.Order, error)
	Transition(ctx context.Context, req orderports.TransitionRequest) (bool, error)
	FlagReconciliation(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

// Loyalty awards points for a confirmed online payment.
type Loyalty interface {
	Award(ctx context.Context, buyerID, orderID string, amount decimal.Decimal) error
}

// Session is the provider's view of a hosted checkout session.
type Session struct {
	ID            string
	PaymentStatus string
	OrderID       string
	BuyerID       string
}

// SessionLookup retrieves checkout sessions for client-side verification.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// Gateway confirms online payments exactly once.
type Gateway interface {
	HandleWebhook(ctx context.Context, signature string, body []byte) (*domain.Result, error)
	VerifyPayment(ctx context.Context, actor identity.Actor, orderID string) (*domain.Result, error)
}
