package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter. Each guarded method
// checks its condition and writes under one lock acquisition.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	now    func() time.Time
}

func NewRepository() *Repository {
	return &Repository{orders: map[string]*domain.Order{}, now: time.Now}
}

// WithClock overrides the clock used for UpdatedAt stamps.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *Repository) Create(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return ports.ErrDuplicate
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) ListByBuyer(_ context.Context, buyerID string) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]*domain.Order, int64, error) {
	all := r.filter(func(o *domain.Order) bool { return filter.Status == "" || o.Status == filter.Status })
	total := int64(len(all))
	start := (filter.Page - 1) * filter.PageSize
	if start < 0 || start >= len(all) {
		return []*domain.Order{}, total, nil
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *Repository) ListTrackable(_ context.Context) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.Tracking.Number != "" && !o.Status.Terminal() }), nil
}

func (r *Repository) ListUnpaidOnline(_ context.Context, cutoff time.Time) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool {
		return o.PaymentMethod == domain.PaymentOnline && !o.Paid && o.Status == domain.StatusPlaced && o.CreatedAt.Before(cutoff)
	}), nil
}

func (r *Repository) Transition(_ context.Context, req ports.TransitionRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[req.ID]
	if !ok {
		return false, ports.ErrNotFound
	}
	if order.Status != req.From || (req.RequireUnpaid && order.Paid) {
		return false, nil
	}
	order.Status = req.To
	if req.MarkPaid {
		order.Paid = true
	}
	order.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *Repository) FlagReconciliation(_ context.Context, id, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, ports.ErrNotFound
	}
	if order.Paid {
		return false, nil
	}
	order.Paid = true
	order.Reconciliation = &domain.Reconciliation{Reason: reason, FlaggedAt: at.UTC()}
	order.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *Repository) FlagForReview(_ context.Context, id, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, ports.ErrNotFound
	}
	if order.Reconciliation != nil {
		return false, nil
	}
	order.Reconciliation = &domain.Reconciliation{Reason: reason, FlaggedAt: at.UTC()}
	order.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *Repository) AssignTracking(_ context.Context, id string, tracking domain.Tracking) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, ports.ErrNotFound
	}
	if order.Status != domain.StatusPacking {
		return false, nil
	}
	order.Status = domain.StatusShipped
	order.Tracking.Number = tracking.Number
	order.Tracking.Courier = tracking.Courier
	order.Tracking.URL = tracking.URL
	order.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *Repository) ApplyCheckpoint(_ context.Context, update ports.CheckpointUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[update.ID]
	if !ok {
		return false, ports.ErrNotFound
	}
	if order.Status != update.From {
		return false, nil
	}
	if last := order.Tracking.LastCheckpoint; last != nil && !update.Checkpoint.At.After(last.At) {
		return false, nil
	}
	cp := update.Checkpoint
	order.Tracking.LastCheckpoint = &cp
	if update.EstimatedDelivery != nil {
		eta := *update.EstimatedDelivery
		order.Tracking.EstimatedDelivery = &eta
	}
	order.Status = update.To
	if update.To == domain.StatusDelivered && order.PaymentMethod == domain.PaymentCOD {
		order.Paid = true
	}
	order.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *Repository) SetEstimatedDelivery(_ context.Context, id string, eta time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, ports.ErrNotFound
	}
	if order.Status.Terminal() {
		return false, nil
	}
	at := eta.UTC()
	order.Tracking.EstimatedDelivery = &at
	order.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *Repository) SetExternalSession(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	order.ExternalSessionID = sessionID
	order.UpdatedAt = r.now().UTC()
	return nil
}

func (r *Repository) DeleteUnpaid(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.Paid || order.Status != domain.StatusCancelled {
		return false, nil
	}
	delete(r.orders, id)
	return true, nil
}

func (r *Repository) Stats(_ context.Context) (ports.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := ports.Stats{ByStatus: map[domain.Status]int64{}, PaidRevenue: decimal.Zero}
	for _, o := range r.orders {
		stats.Total++
		stats.ByStatus[o.Status]++
		if o.Paid {
			stats.PaidRevenue = stats.PaidRevenue.Add(o.Amount)
		} else if o.Status == domain.StatusPlaced && o.PaymentMethod == domain.PaymentOnline {
			stats.AwaitingPayment++
		}
		if o.Reconciliation != nil {
			stats.NeedReconciliation++
		}
	}
	return stats, nil
}

func (r *Repository) filter(keep func(*domain.Order) bool) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
