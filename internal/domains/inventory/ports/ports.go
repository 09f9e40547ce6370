package ports

import (
	"context"
	"errors"

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
)

var ErrNotFound = errors.New("product not found")

// StockRepository is the only path through which product stock changes.
// Implementations must apply every decrement as a guarded update
// ("stock = stock - qty WHERE stock >= qty"), never as read-then-write.
type StockRepository interface {
	// GetProducts returns the requested products keyed by id; unknown ids are absent from the map.
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	// DecrementIfAvailable applies all adjustments in one bulk operation and returns
	// the subset that was applied.
	DecrementIfAvailable(ctx context.Context, adjustments []domain.Adjustment) ([]domain.Adjustment, error)
	// Increment adds the quantities back unconditionally.
	Increment(ctx context.Context, adjustments []domain.Adjustment) error
	// Upsert creates or replaces a catalog product.
	Upsert(ctx context.Context, product *domain.Product) error
}

// Ledger validates carts against live stock and applies all-or-nothing stock effects.
type Ledger interface {
	ValidateAndPrice(ctx context.Context, lines []domain.Line) ([]domain.PricedLine, error)
	CommitDecrement(ctx context.Context, adjustments []domain.Adjustment) error
	Restore(ctx context.Context, adjustments []domain.Adjustment) error
}
