package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-engine/internal/domains/orders/domain"
)

// Carts is the buyer-cart collaborator touched after a successful placement.
type Carts interface {
	Clear(ctx context.Context, buyerID string) error
	MarkRecovered(ctx context.Context, buyerID, orderID string) error
}

// CheckoutRequest describes the hosted checkout session for an online order.
// OrderID and BuyerID travel as opaque correlation metadata.
type CheckoutRequest struct {
	OrderID     string
	BuyerID     string
	Currency    string
	Items       []domain.LineItem
	DeliveryFee decimal.Decimal
	Amount      decimal.Decimal
}

// CheckoutSession is the provider's handle for a hosted payment page.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutSessions creates hosted payment sessions with the payment provider.
type CheckoutSessions interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}
