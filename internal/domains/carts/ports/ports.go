package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/order-engine/internal/domains/carts/domain"
	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

var ErrNotFound = errors.New("cart not found")

// Repository persists carts and abandoned-cart records.
type Repository interface {
	Get(ctx context.Context, buyerID string) (*domain.Cart, error)
	Put(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, buyerID string) error
	// ListIdle returns non-empty carts last updated before cutoff that have no open abandoned record.
	ListIdle(ctx context.Context, cutoff time.Time) ([]*domain.Cart, error)
	// CreateAbandoned inserts an open record; it reports false if the buyer already has one.
	CreateAbandoned(ctx context.Context, record *domain.AbandonedCart) (bool, error)
	// MarkRecovered closes the buyer's open record, if any, with the order that recovered it.
	MarkRecovered(ctx context.Context, buyerID, orderID string, at time.Time) (bool, error)
	ListAbandoned(ctx context.Context, status domain.AbandonedStatus) ([]*domain.AbandonedCart, error)
}

// SweepReport summarises one abandoned-cart sweep.
type SweepReport struct {
	Cutoff  time.Time
	Checked int
	Flagged int
	Failed  int
}

// Service is the cart use-case surface.
type Service interface {
	Put(ctx context.Context, actor identity.Actor, items []inventorydomain.Line) (*domain.Cart, error)
	Get(ctx context.Context, actor identity.Actor) (*domain.Cart, error)
	Clear(ctx context.Context, buyerID string) error
	MarkRecovered(ctx context.Context, buyerID, orderID string) error
	SweepAbandoned(ctx context.Context, cutoff time.Time) (*SweepReport, error)
	ListAbandoned(ctx context.Context, actor identity.Actor, status domain.AbandonedStatus) ([]*domain.AbandonedCart, error)
}
