package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/domains/inventory/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

// Ledger enforces non-negative stock on top of a StockRepository.
type Ledger struct {
	repo   ports.StockRepository
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLedger(repo ports.StockRepository, opts ...Option) *Ledger {
	l := &Ledger{repo: repo, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// ValidateAndPrice checks every line's shape, then checks live stock for the
// aggregated quantity per product. Returned lines carry the live catalog price.
func (l *Ledger) ValidateAndPrice(ctx context.Context, lines []domain.Line) ([]domain.PricedLine, error) {
	if len(lines) == 0 {
		return nil, failure.Validation("cart is empty")
	}
	ids := make([]string, 0, len(lines))
	requested := make([]domain.Adjustment, 0, len(lines))
	for i, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, mapError(i, err)
		}
		ids = append(ids, line.ProductID)
		requested = append(requested, domain.Adjustment{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	products, err := l.repo.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	priced := make([]domain.PricedLine, 0, len(lines))
	for i, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, failure.NotFound("product", line.ProductID)
		}
		if !product.OffersSize(line.Size) {
			return nil, mapError(i, fmt.Errorf("%w: %q", domain.ErrUnknownSize, line.Size))
		}
		priced = append(priced, domain.PricedLine{
			ProductID: product.ID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Size:      line.Size,
		})
	}

	for _, adj := range domain.Aggregate(requested) {
		if product := products[adj.ProductID]; product.Stock < adj.Quantity {
			return nil, failure.Stock(adj.ProductID, adj.Quantity, product.Stock)
		}
	}
	return priced, nil
}

// CommitDecrement applies every adjustment or none. When the bulk guarded
// decrement applies only part of the set, the applied part is re-incremented
// before returning a stock error.
func (l *Ledger) CommitDecrement(ctx context.Context, adjustments []domain.Adjustment) error {
	want := domain.Aggregate(adjustments)
	if len(want) == 0 {
		return failure.Validation("no stock adjustments to commit")
	}
	applied, err := l.repo.DecrementIfAvailable(ctx, want)
	if err != nil {
		if len(applied) > 0 {
			err = errors.Join(err, l.compensate(ctx, applied))
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	if len(applied) == len(want) {
		return nil
	}

	missing := firstMissing(want, applied)
	if cerr := l.compensate(ctx, applied); cerr != nil {
		return errors.Join(failure.Stock(missing.ProductID, missing.Quantity, -1), cerr)
	}
	return failure.Stock(missing.ProductID, missing.Quantity, -1)
}

// Restore increments stock unconditionally. Used by cancellation and returns.
func (l *Ledger) Restore(ctx context.Context, adjustments []domain.Adjustment) error {
	want := domain.Aggregate(adjustments)
	if len(want) == 0 {
		return nil
	}
	if err := l.repo.Increment(ctx, want); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func (l *Ledger) compensate(ctx context.Context, applied []domain.Adjustment) error {
	if len(applied) == 0 {
		return nil
	}
	l.logger.LogAttrs(ctx, slog.LevelWarn, "compensating partial stock decrement", slog.Int("items", len(applied)))
	if err := l.repo.Increment(ctx, applied); err != nil {
		l.logger.LogAttrs(ctx, slog.LevelError, "stock compensation failed",
			slog.Int("items", len(applied)), slog.String("error", err.Error()))
		return fmt.Errorf("compensate decrement: %w", err)
	}
	return nil
}

func firstMissing(want, applied []domain.Adjustment) domain.Adjustment {
	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.ProductID] = true
	}
	for _, w := range want {
		if !done[w.ProductID] {
			return w
		}
	}
	return want[0]
}

var _ ports.Ledger = (*Ledger)(nil)
