package mapper

import (
	"time"

	"github.com/Apurer/order-engine/internal/domains/carts/domain"
	ordermapper "github.com/Apurer/order-engine/internal/domains/orders/adapters/http/mapper"
)

type PutCartRequest struct {
	Items []ordermapper.CartItem `json:"items"`
}

type Cart struct {
	BuyerID   string                 `json:"buyerId"`
	Items     []ordermapper.CartItem `json:"items"`
	UpdatedAt *time.Time             `json:"updatedAt,omitempty"`
}

type AbandonedCart struct {
	ID          string                 `json:"id"`
	BuyerID     string                 `json:"buyerId"`
	Items       []ordermapper.CartItem `json:"items"`
	Status      string                 `json:"status"`
	OrderID     string                 `json:"orderId,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	RecoveredAt *time.Time             `json:"recoveredAt,omitempty"`
}

// FromCart renders a stored cart; a nil cart is an empty one for buyerID.
func FromCart(buyerID string, cart *domain.Cart) Cart {
	if cart == nil {
		return Cart{BuyerID: buyerID, Items: []ordermapper.CartItem{}}
	}
	out := Cart{BuyerID: cart.BuyerID, Items: ordermapper.FromLines(cart.Items)}
	if !cart.UpdatedAt.IsZero() {
		updated := cart.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

func FromAbandoned(records []*domain.AbandonedCart) []AbandonedCart {
	out := make([]AbandonedCart, 0, len(records))
	for _, r := range records {
		out = append(out, AbandonedCart{
			ID:          r.ID,
			BuyerID:     r.BuyerID,
			Items:       ordermapper.FromLines(r.Items),
			Status:      string(r.Status),
			OrderID:     r.OrderID,
			CreatedAt:   r.CreatedAt,
			RecoveredAt: r.RecoveredAt,
		})
	}
	return out
}
