package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	notifyports "github.com/Apurer/order-engine/internal/domains/notifications/ports"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

// Synchronizer pulls carrier records and advances orders along the automaton.
// It holds no locks; every write is a guarded ApplyCheckpoint.
type Synchronizer struct {
	orders   ports.Orders
	carrier  ports.Carrier
	notifier notifyports.Sender
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Synchronizer)

func WithNotifier(sender notifyports.Sender) Option {
	return func(s *Synchronizer) { s.notifier = sender }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSynchronizer(orders ports.Orders, carrier ports.Carrier, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		orders:  orders,
		carrier: carrier,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SyncAll walks every trackable order. A failing order is logged and counted;
// only cancellation of ctx stops the batch early.
func (s *Synchronizer) SyncAll(ctx context.Context) (*ports.Report, error) {
	orders, err := s.orders.ListTrackable(ctx)
	if err != nil {
		return nil, err
	}
	report := &ports.Report{}
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		result, err := s.sync(ctx, order)
		if err != nil {
			report.Failed++
			s.logger.LogAttrs(ctx, slog.LevelWarn, "tracking sync failed for order",
				slog.String("order.id", order.ID),
				slog.String("tracking.number", order.Tracking.Number),
				slog.String("error", err.Error()))
			continue
		}
		if result.Recorded {
			report.Recorded++
		}
		if result.Changed() {
			report.Updated++
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "tracking sync finished",
		slog.Int("checked", report.Checked),
		slog.Int("updated", report.Updated),
		slog.Int("recorded", report.Recorded),
		slog.Int("failed", report.Failed))
	return report, nil
}

// SyncOrder syncs a single order, as a manual resync does.
func (s *Synchronizer) SyncOrder(ctx context.Context, orderID string) (*ports.OrderResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, failure.Validation("order id is required")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, orderID)
	}
	if order.Tracking.Number == "" {
		return nil, failure.Conflict("order %s has no tracking number", orderID)
	}
	return s.sync(ctx, order)
}

// Live returns the carrier's current record for an order the actor may see.
func (s *Synchronizer) Live(ctx context.Context, actor identity.Actor, orderID string) (*domain.Record, error) {
	if actor.Anonymous() {
		return nil, failure.Unauthorized("identity required")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, orderID)
	}
	if !actor.CanAccess(order.BuyerID) {
		return nil, failure.Forbidden("order %s belongs to another buyer", orderID)
	}
	if order.Tracking.Number == "" {
		return nil, failure.NotFound("tracking for order", orderID)
	}
	record, err := s.fetch(ctx, order)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Synchronizer) sync(ctx context.Context, order *orderdomain.Order) (*ports.OrderResult, error) {
	result := &ports.OrderResult{OrderID: order.ID, From: order.Status, To: order.Status}
	if order.Status.Terminal() {
		return result, nil
	}
	record, err := s.fetch(ctx, order)
	if err != nil {
		return nil, err
	}
	result.Tag = record.CurrentTag()
	to, changed := domain.Resolve(order.Status, result.Tag)

	checkpoint, ok := record.Latest()
	if !ok {
		if !changed {
			return s.refreshETA(ctx, order, record, result)
		}
		checkpoint = domain.Checkpoint{Tag: result.Tag, At: s.now().UTC()}
	}
	applied, err := s.orders.ApplyCheckpoint(ctx, orderports.CheckpointUpdate{
		ID:   order.ID,
		From: order.Status,
		To:   to,
		Checkpoint: orderdomain.Checkpoint{
			Tag:      checkpoint.Tag,
			Message:  checkpoint.Message,
			Location: checkpoint.Location,
			At:       checkpoint.At.UTC(),
		},
		EstimatedDelivery: record.ExpectedDelivery,
	})
	if err != nil {
		return nil, mapOrderError(err, order.ID)
	}
	if !applied {
		// Stale checkpoint, or a concurrent sync already moved the order.
		s.logger.LogAttrs(ctx, slog.LevelDebug, "tracking checkpoint not applied",
			slog.String("order.id", order.ID), slog.String("tracking.tag", result.Tag))
		return s.refreshETA(ctx, order, record, result)
	}
	result.Recorded = true
	result.To = to
	if changed {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "order advanced by carrier",
			slog.String("order.id", order.ID),
			slog.String("order.from", string(order.Status)),
			slog.String("order.to", string(to)),
			slog.String("tracking.tag", result.Tag))
		s.send(ctx, order, to)
	}
	return result, nil
}

// refreshETA stores a changed carrier ETA when no newer checkpoint carried it.
func (s *Synchronizer) refreshETA(ctx context.Context, order *orderdomain.Order, record *domain.Record, result *ports.OrderResult) (*ports.OrderResult, error) {
	eta := record.ExpectedDelivery
	if eta == nil {
		return result, nil
	}
	if current := order.Tracking.EstimatedDelivery; current != nil && current.Equal(*eta) {
		return result, nil
	}
	updated, err := s.orders.SetEstimatedDelivery(ctx, order.ID, *eta)
	if err != nil {
		return nil, mapOrderError(err, order.ID)
	}
	result.ETAUpdated = updated
	return result, nil
}

func (s *Synchronizer) fetch(ctx context.Context, order *orderdomain.Order) (*domain.Record, error) {
	record, err := s.carrier.Fetch(ctx, order.Tracking.Number, order.Tracking.Courier)
	if err != nil {
		if errors.Is(err, ports.ErrUnknownShipment) {
			return nil, failure.NotFound("shipment", order.Tracking.Number)
		}
		return nil, failure.External("carrier", err)
	}
	if record == nil {
		record = &domain.Record{}
	}
	return record, nil
}

func (s *Synchronizer) send(ctx context.Context, order *orderdomain.Order, to orderdomain.Status) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(ctx, order.ID, notifydomain.KindOrderStatusChanged, map[string]any{
		"buyerId":        order.BuyerID,
		"status":         string(to),
		"trackingNumber": order.Tracking.Number,
		"trackingUrl":    order.Tracking.URL,
	})
}

func mapOrderError(err error, orderID string) error {
	if errors.Is(err, orderports.ErrNotFound) {
		return failure.NotFound("order", orderID)
	}
	return err
}

var _ ports.Synchronizer = (*Synchronizer)(nil)
