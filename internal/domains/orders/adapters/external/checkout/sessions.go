package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	checkoutclient "github.com/Apurer/order-engine/internal/clients/http/checkout"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
)

const deliveryLineName = "Delivery"

// Sessions implements the orders checkout port over the provider client.
type Sessions struct {
	client     *checkoutclient.Client
	successURL string
	cancelURL  string
}

func NewSessions(client *checkoutclient.Client, successURL, cancelURL string) *Sessions {
	return &Sessions{client: client, successURL: successURL, cancelURL: cancelURL}
}

func (s *Sessions) CreateSession(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutSession, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("checkout sessions not configured")
	}
	session, err := s.client.CreateSession(ctx, ToSessionRequest(req, s.successURL, s.cancelURL))
	if err != nil {
		return nil, err
	}
	out := &ports.CheckoutSession{ID: session.ID}
	if session.URL != nil {
		out.URL = *session.URL
	}
	return out, nil
}

// ToSessionRequest prices every line in minor units and adds the delivery fee as its own line.
func ToSessionRequest(req ports.CheckoutRequest, successURL, cancelURL string) checkoutclient.CreateSessionRequest {
	lines := make([]checkoutclient.LineItem, 0, len(req.Items)+1)
	for _, item := range req.Items {
		lines = append(lines, checkoutclient.LineItem{Name: item.Name, Quantity: item.Quantity, UnitAmount: minorUnits(item.UnitPrice)})
	}
	if req.DeliveryFee.IsPositive() {
		lines = append(lines, checkoutclient.LineItem{Name: deliveryLineName, Quantity: 1, UnitAmount: minorUnits(req.DeliveryFee)})
	}
	return checkoutclient.CreateSessionRequest{
		Mode:       "payment",
		Currency:   req.Currency,
		LineItems:  lines,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Metadata:   map[string]string{"orderId": req.OrderID, "buyerId": req.BuyerID},
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var _ ports.CheckoutSessions = (*Sessions)(nil)
