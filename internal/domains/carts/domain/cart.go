package domain

import (
	"errors"
	"strings"
	"time"

	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
)

var (
	ErrMissingBuyer = errors.New("buyer id is required")
	ErrTooManyLines = errors.New("cart has too many lines")
)

// MaxLines caps how many distinct lines a stored cart may hold.
const MaxLines = 50

// Cart is the buyer's current, not yet ordered selection.
type Cart struct {
	BuyerID   string
	Items     []inventorydomain.Line
	UpdatedAt time.Time
}

// NewCart validates the items and stamps the cart.
func NewCart(buyerID string, items []inventorydomain.Line, now time.Time) (*Cart, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, ErrMissingBuyer
	}
	if len(items) > MaxLines {
		return nil, ErrTooManyLines
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}
	return &Cart{BuyerID: buyerID, Items: append([]inventorydomain.Line(nil), items...), UpdatedAt: now.UTC()}, nil
}

func (c *Cart) Empty() bool { return c == nil || len(c.Items) == 0 }

type AbandonedStatus string

const (
	AbandonedOpen      AbandonedStatus = "open"
	AbandonedRecovered AbandonedStatus = "recovered"
)

// AbandonedCart records a cart left idle long enough to warrant a reminder.
type AbandonedCart struct {
	ID          string
	BuyerID     string
	Items       []inventorydomain.Line
	Status      AbandonedStatus
	OrderID     string
	CreatedAt   time.Time
	RecoveredAt *time.Time
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]inventorydomain.Line(nil), c.Items...)
	return &cp
}

func (a *AbandonedCart) Clone() *AbandonedCart {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Items = append([]inventorydomain.Line(nil), a.Items...)
	if a.RecoveredAt != nil {
		at := *a.RecoveredAt
		cp.RecoveredAt = &at
	}
	return &cp
}
