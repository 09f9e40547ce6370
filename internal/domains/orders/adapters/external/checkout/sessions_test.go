package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
)

func TestToSessionRequest(t *testing.T) {
	req := ToSessionRequest(ports.CheckoutRequest{
		OrderID:  "o-1",
		BuyerID:  "b-1",
		Currency: "usd",
		Items: []domain.LineItem{
			{Name: "Tee", Quantity: 2, UnitPrice: decimal.RequireFromString("25.00")},
			{Name: "Cap", Quantity: 1, UnitPrice: decimal.RequireFromString("9.995")},
		},
		DeliveryFee: decimal.NewFromInt(10),
	}, "https://shop/ok", "https://shop/cancel")

	require.Len(t, req.LineItems, 3)
	assert.Equal(t, int64(2500), req.LineItems[0].UnitAmount)
	assert.Equal(t, int64(1000), req.LineItems[1].UnitAmount)
	assert.Equal(t, deliveryLineName, req.LineItems[2].Name)
	assert.Equal(t, int64(1000), req.LineItems[2].UnitAmount)
	assert.Equal(t, map[string]string{"orderId": "o-1", "buyerId": "b-1"}, req.Metadata)
	assert.Equal(t, "https://shop/ok", req.SuccessURL)
}

func TestToSessionRequest_FreeDelivery(t *testing.T) {
	req := ToSessionRequest(ports.CheckoutRequest{
		Items:       []domain.LineItem{{Name: "Tee", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
		DeliveryFee: decimal.Zero,
	}, "", "")
	assert.Len(t, req.LineItems, 1)
}
