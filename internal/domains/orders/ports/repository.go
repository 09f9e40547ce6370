package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-engine/internal/domains/orders/domain"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already exists")
)

// TransitionRequest is a guarded status update. It applies only when the
// stored order still has status From and, if RequireUnpaid is set, paid=false.
type TransitionRequest struct {
	ID            string
	From          domain.Status
	To            domain.Status
	RequireUnpaid bool
	MarkPaid      bool
}

// CheckpointUpdate is a guarded carrier update. It applies only when the stored
// status is still From and the checkpoint is newer than the stored one.
type CheckpointUpdate struct {
	ID                string
	From              domain.Status
	To                domain.Status
	Checkpoint        domain.Checkpoint
	EstimatedDelivery *time.Time
}

// ListFilter selects a page of orders, newest first.
type ListFilter struct {
	Status   domain.Status
	Page     int
	PageSize int
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	Total              int64
	ByStatus           map[domain.Status]int64
	PaidRevenue        decimal.Decimal
	AwaitingPayment    int64
	NeedReconciliation int64
}

// Repository persists orders. Every mutation after Create is a conditional
// update that reports whether its guard matched; none reads then writes.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Order, int64, error)
	// ListTrackable returns orders with a tracking number and a non-terminal status.
	ListTrackable(ctx context.Context) ([]*domain.Order, error)
	// ListUnpaidOnline returns online, unpaid, Placed orders created before cutoff.
	ListUnpaidOnline(ctx context.Context, cutoff time.Time) ([]*domain.Order, error)

	Transition(ctx context.Context, req TransitionRequest) (bool, error)
	// FlagReconciliation marks an unpaid order paid and flagged for an operator,
	// keeping its status.
	FlagReconciliation(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// FlagForReview records an operator follow-up without touching paid or
	// status. An order that is already flagged keeps its first reason.
	FlagForReview(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// AssignTracking moves a Packing order to Shipped with the given tracking fields.
	AssignTracking(ctx context.Context, id string, tracking domain.Tracking) (bool, error)
	ApplyCheckpoint(ctx context.Context, update CheckpointUpdate) (bool, error)
	// SetEstimatedDelivery stores a carrier ETA on an order that is still in flight.
	SetEstimatedDelivery(ctx context.Context, id string, eta time.Time) (bool, error)
	SetExternalSession(ctx context.Context, id, sessionID string) error
	// DeleteUnpaid removes an order only while it is unpaid and cancelled.
	DeleteUnpaid(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (Stats, error)
}
