package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

// Cancel cancels an unpaid Placed order. COD stock is restored; online orders
// never decremented stock so nothing is restored. The paid=false guard is
// re-checked by the conditional update itself.
func (s *Service) Cancel(ctx context.Context, ref ordertypes.OrderRef) (*domain.Order, error) {
	order, err := s.loadFor(ctx, ref.Actor, ref.ID)
	if err != nil {
		return nil, err
	}
	if err := cancellable(order); err != nil {
		return nil, err
	}
	applied, err := s.repo.Transition(ctx, ports.TransitionRequest{
		ID: order.ID, From: domain.StatusPlaced, To: domain.StatusCancelled, RequireUnpaid: true,
	})
	if err != nil {
		return nil, mapError(err)
	}
	if !applied {
		return nil, failure.Conflict("order %s was paid or advanced before it could be cancelled", order.ID)
	}
	order.Status = domain.StatusCancelled
	if order.PaymentMethod == domain.PaymentCOD {
		if err := s.ledger.Restore(ctx, order.Adjustments()); err != nil {
			if ferr := s.flagRestoreFailure(ctx, order, err); ferr != nil {
				return nil, ferr
			}
		}
	}
	s.send(ctx, order, notifydomain.KindOrderCancelled)
	return order, nil
}

// flagRestoreFailure keeps a cancelled COD order whose stock could not be
// put back visible to operators; the cancellation itself has committed.
func (s *Service) flagRestoreFailure(ctx context.Context, order *domain.Order, restoreErr error) error {
	reason := "stock restore after cancellation failed: " + restoreErr.Error()
	at := s.now()
	s.logger.LogAttrs(ctx, slog.LevelError, "cancelled order stock restore failed",
		slog.String("order.id", order.ID), slog.String("error", restoreErr.Error()))
	flagged, err := s.repo.FlagForReview(ctx, order.ID, reason, at)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to flag order for stock review",
			slog.String("order.id", order.ID), slog.String("error", err.Error()))
		return fmt.Errorf("flag order %s after restore failure: %w (restore: %w)", order.ID, mapError(err), restoreErr)
	}
	if flagged {
		order.Reconciliation = &domain.Reconciliation{Reason: reason, FlaggedAt: at.UTC()}
	}
	return nil
}

func cancellable(order *domain.Order) error {
	if order.Paid {
		return failure.Conflict("order %s is already paid", order.ID)
	}
	if _, ok := domain.Next(order.Status, domain.EventCancelRequested); !ok {
		return failure.Conflict("order %s is %s and can no longer be cancelled", order.ID, order.Status)
	}
	return nil
}

// UpdateStatus moves an order along the automaton edge leading to the
// requested status. Edges owned by other flows are refused here.
func (s *Service) UpdateStatus(ctx context.Context, input ordertypes.UpdateStatusInput) (*domain.Order, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if !input.To.Valid() {
		return nil, failure.Validation("unknown status %q", input.To)
	}
	order, err := s.loadFor(ctx, input.Actor, input.ID)
	if err != nil {
		return nil, err
	}
	if order.Status == input.To {
		return order, nil
	}
	ev, ok := domain.EventFor(order.Status, input.To)
	if !ok {
		return nil, failure.Conflict("no transition from %s to %s", order.Status, input.To)
	}

	req := ports.TransitionRequest{ID: order.ID, From: order.Status, To: input.To}
	switch ev {
	case domain.EventCancelRequested:
		return s.Cancel(ctx, ordertypes.OrderRef{Actor: input.Actor, ID: order.ID})
	case domain.EventTrackingAssigned:
		return nil, failure.Conflict("assign a tracking number to ship order %s", order.ID)
	case domain.EventPaymentConfirmed:
		// Online orders are confirmed by the payment gateway; this edge is the
		// operator accepting a cash order for packing.
		if order.PaymentMethod != domain.PaymentCOD {
			return nil, failure.Conflict("online order %s is confirmed by payment", order.ID)
		}
		req.RequireUnpaid = true
	case domain.EventDelivered:
		req.MarkPaid = order.PaymentMethod == domain.PaymentCOD
	}

	applied, err := s.repo.Transition(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	if !applied {
		return nil, failure.Conflict("order %s changed concurrently", order.ID)
	}
	order.Status = input.To
	if req.MarkPaid {
		order.Paid = true
	}
	s.send(ctx, order, notifydomain.KindOrderStatusChanged)
	return order, nil
}

// AssignTracking ships a Packing order.
func (s *Service) AssignTracking(ctx context.Context, input ordertypes.AssignTrackingInput) (*domain.Order, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(input.TrackingNumber)
	courier := domain.NormalizeCourier(input.Courier)
	if number == "" || courier == "" {
		return nil, failure.Validation("tracking number and courier are required")
	}
	order, err := s.loadFor(ctx, input.Actor, input.ID)
	if err != nil {
		return nil, err
	}
	to, ok := domain.Next(order.Status, domain.EventTrackingAssigned)
	if !ok {
		return nil, failure.Conflict("order %s is %s; tracking can only be assigned while packing", order.ID, order.Status)
	}
	tracking := domain.Tracking{Number: number, Courier: courier, URL: domain.TrackingURL(courier, number)}
	applied, err := s.repo.AssignTracking(ctx, order.ID, tracking)
	if err != nil {
		return nil, mapError(err)
	}
	if !applied {
		return nil, failure.Conflict("order %s changed concurrently", order.ID)
	}
	order.Status = to
	order.Tracking.Number, order.Tracking.Courier, order.Tracking.URL = tracking.Number, tracking.Courier, tracking.URL
	s.send(ctx, order, notifydomain.KindOrderStatusChanged)
	return order, nil
}

func (s *Service) loadFor(ctx context.Context, actor identity.Actor, id string) (*domain.Order, error) {
	if actor.Anonymous() {
		return nil, failure.Unauthorized("identity required")
	}
	if strings.TrimSpace(id) == "" {
		return nil, failure.Validation("order id is required")
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if !actor.CanAccess(order.BuyerID) {
		return nil, failure.Forbidden("order %s belongs to another buyer", id)
	}
	return order, nil
}

func requireAdmin(actor identity.Actor) error {
	if actor.Anonymous() {
		return failure.Unauthorized("identity required")
	}
	if !actor.IsAdmin() {
		return failure.Forbidden("admin role required")
	}
	return nil
}
