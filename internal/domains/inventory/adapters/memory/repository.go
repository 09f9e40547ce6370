package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/domains/inventory/ports"
)

var _ ports.StockRepository = (*Repository)(nil)

// Repository is an in-memory product stock adapter. Each item of a bulk
// decrement is checked and applied under the lock, like a row-level guard.
type Repository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewRepository(products ...*domain.Product) *Repository {
	r := &Repository{products: map[string]*domain.Product{}}
	for _, p := range products {
		if p != nil {
			r.products[p.ID] = clone(p)
		}
	}
	return r
}

func (r *Repository) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = clone(p)
		}
	}
	return out, nil
}

func (r *Repository) DecrementIfAvailable(_ context.Context, adjustments []domain.Adjustment) ([]domain.Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	applied := make([]domain.Adjustment, 0, len(adjustments))
	for _, adj := range adjustments {
		p, ok := r.products[adj.ProductID]
		if !ok || p.Stock < adj.Quantity {
			continue
		}
		p.Stock -= adj.Quantity
		applied = append(applied, adj)
	}
	return applied, nil
}

func (r *Repository) Increment(_ context.Context, adjustments []domain.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, adj := range adjustments {
		if _, ok := r.products[adj.ProductID]; !ok {
			return ports.ErrNotFound
		}
	}
	for _, adj := range adjustments {
		r.products[adj.ProductID].Stock += adj.Quantity
	}
	return nil
}

func (r *Repository) Upsert(_ context.Context, product *domain.Product) error {
	if product == nil {
		return errors.New("product is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = clone(product)
	return nil
}

// Stock returns the current level for a product, or -1 when unknown.
func (r *Repository) Stock(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.products[id]; ok {
		return p.Stock
	}
	return -1
}

func clone(p *domain.Product) *domain.Product {
	c := *p
	c.Sizes = append([]string(nil), p.Sizes...)
	return &c
}
