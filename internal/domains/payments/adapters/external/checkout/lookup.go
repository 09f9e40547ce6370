package checkout

import (
	"context"
	"errors"

	checkoutclient "github.com/Apurer/order-engine/internal/clients/http/checkout"
	"github.com/Apurer/order-engine/internal/domains/payments/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

// Lookup implements the payments session lookup over the provider client.
type Lookup struct {
	client *checkoutclient.Client
}

func NewLookup(client *checkoutclient.Client) *Lookup {
	return &Lookup{client: client}
}

func (l *Lookup) GetSession(ctx context.Context, sessionID string) (*ports.Session, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("checkout lookup not configured")
	}
	session, err := l.client.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, checkoutclient.ErrNotFound) {
			return nil, failure.NotFound("checkout session", sessionID)
		}
		return nil, err
	}
	out := &ports.Session{
		ID:      session.ID,
		OrderID: session.Metadata["orderId"],
		BuyerID: session.Metadata["buyerId"],
	}
	if session.PaymentStatus != nil {
		out.PaymentStatus = *session.PaymentStatus
	}
	return out, nil
}

var _ ports.SessionLookup = (*Lookup)(nil)
