package types

import (
	"time"

	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

// PlaceOrderInput carries a buyer's checkout request.
type PlaceOrderInput struct {
	Actor   identity.Actor
	Items   []inventorydomain.Line
	Address domain.Address
}

// OnlineCheckout is returned by online placement; the buyer is sent to RedirectURL to pay.
type OnlineCheckout struct {
	Order       *domain.Order
	SessionID   string
	RedirectURL string
}

// OrderRef identifies an order on behalf of an actor.
type OrderRef struct {
	Actor identity.Actor
	ID    string
}

// ListOrdersInput is the admin pagination query.
type ListOrdersInput struct {
	Status   domain.Status
	Page     int
	PageSize int
}

// OrderPage is one page of the admin listing.
type OrderPage struct {
	Orders   []*domain.Order
	Total    int64
	Page     int
	PageSize int
}

// UpdateStatusInput asks for a status change through the automaton.
type UpdateStatusInput struct {
	Actor identity.Actor
	ID    string
	To    domain.Status
}

// AssignTrackingInput attaches a carrier tracking number to a Packing order.
type AssignTrackingInput struct {
	Actor          identity.Actor
	ID             string
	TrackingNumber string
	Courier        string
}

// SweepReport summarises one unpaid-order sweep.
type SweepReport struct {
	Cutoff    time.Time
	Checked   int
	Cancelled int
	Deleted   int
	Failed    int
}
