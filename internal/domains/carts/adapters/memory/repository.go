package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/order-engine/internal/domains/carts/domain"
	"github.com/Apurer/order-engine/internal/domains/carts/ports"
)

var _ ports.Repository = (*Repository)(nil)

type Repository struct {
	mu        sync.RWMutex
	carts     map[string]*domain.Cart
	abandoned map[string]*domain.AbandonedCart
}

func NewRepository() *Repository {
	return &Repository{carts: map[string]*domain.Cart{}, abandoned: map[string]*domain.AbandonedCart{}}
}

func (r *Repository) Get(_ context.Context, buyerID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[buyerID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cart.Clone(), nil
}

func (r *Repository) Put(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.BuyerID] = cart.Clone()
	return nil
}

func (r *Repository) Clear(_ context.Context, buyerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, buyerID)
	return nil
}

func (r *Repository) ListIdle(_ context.Context, cutoff time.Time) ([]*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Cart, 0)
	for buyerID, cart := range r.carts {
		if cart.Empty() || !cart.UpdatedAt.Before(cutoff) || r.openFor(buyerID) != nil {
			continue
		}
		out = append(out, cart.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BuyerID < out[j].BuyerID })
	return out, nil
}

func (r *Repository) CreateAbandoned(_ context.Context, record *domain.AbandonedCart) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openFor(record.BuyerID) != nil {
		return false, nil
	}
	r.abandoned[record.ID] = record.Clone()
	return true, nil
}

func (r *Repository) MarkRecovered(_ context.Context, buyerID, orderID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.openFor(buyerID)
	if record == nil {
		return false, nil
	}
	at = at.UTC()
	record.Status = domain.AbandonedRecovered
	record.OrderID = orderID
	record.RecoveredAt = &at
	return true, nil
}

func (r *Repository) ListAbandoned(_ context.Context, status domain.AbandonedStatus) ([]*domain.AbandonedCart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AbandonedCart, 0)
	for _, record := range r.abandoned {
		if status == "" || record.Status == status {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// openFor must be called with the lock held.
func (r *Repository) openFor(buyerID string) *domain.AbandonedCart {
	for _, record := range r.abandoned {
		if record.BuyerID == buyerID && record.Status == domain.AbandonedOpen {
			return record
		}
	}
	return nil
}
