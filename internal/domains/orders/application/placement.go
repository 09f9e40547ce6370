package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

// PlaceCOD places a cash-on-delivery order. Stock is committed before the
// order is persisted and compensated if persistence fails.
func (s *Service) PlaceCOD(ctx context.Context, input ordertypes.PlaceOrderInput) (*domain.Order, error) {
	order, err := s.prepare(ctx, input, domain.PaymentCOD)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CommitDecrement(ctx, order.Adjustments()); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if rerr := s.ledger.Restore(ctx, order.Adjustments()); rerr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to compensate stock after order persistence failure",
				slog.String("order.id", order.ID), slog.String("error", rerr.Error()))
			err = errors.Join(err, rerr)
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.correlateCart(ctx, order)
	s.send(ctx, order, notifydomain.KindOrderPlaced)
	return order, nil
}

// PlaceOnline persists an unpaid order and opens a hosted checkout session.
// Stock is not touched until the payment is confirmed.
func (s *Service) PlaceOnline(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OnlineCheckout, error) {
	if s.checkout == nil {
		return nil, failure.External("checkout", errors.New("checkout provider not configured"))
	}
	order, err := s.prepare(ctx, input, domain.PaymentOnline)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	session, err := s.checkout.CreateSession(ctx, ports.CheckoutRequest{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		Currency:    s.currency,
		Items:       order.Items,
		DeliveryFee: order.DeliveryFee,
		Amount:      order.Amount,
	})
	if err != nil {
		s.discard(ctx, order.ID)
		if errors.Is(err, failure.ErrExternalService) {
			return nil, err
		}
		return nil, failure.External("checkout", err)
	}
	if err := s.repo.SetExternalSession(ctx, order.ID, session.ID); err != nil {
		s.discard(ctx, order.ID)
		return nil, fmt.Errorf("record checkout session: %w", err)
	}
	order.ExternalSessionID = session.ID
	return &ordertypes.OnlineCheckout{Order: order, SessionID: session.ID, RedirectURL: session.URL}, nil
}

func (s *Service) prepare(ctx context.Context, input ordertypes.PlaceOrderInput, method domain.PaymentMethod) (*domain.Order, error) {
	if input.Actor.Anonymous() {
		return nil, failure.Unauthorized("buyer identity required")
	}
	if len(input.Items) == 0 {
		return nil, failure.Validation("cart is empty")
	}
	if err := input.Address.Validate(); err != nil {
		return nil, mapError(err)
	}
	lines, err := s.ledger.ValidateAndPrice(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	order, err := domain.NewOrder(s.newID(), input.Actor.ID, lines, input.Address, method, s.deliveryFee, s.now())
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// discard removes an online order whose checkout could not be opened, so the
// buyer never sees a half-created order.
func (s *Service) discard(ctx context.Context, id string) {
	if _, err := s.repo.Transition(ctx, ports.TransitionRequest{
		ID: id, From: domain.StatusPlaced, To: domain.StatusCancelled, RequireUnpaid: true,
	}); err != nil {
		s.warn(ctx, "failed to cancel order after checkout failure", err, slog.String("order.id", id))
		return
	}
	if _, err := s.repo.DeleteUnpaid(ctx, id); err != nil {
		s.warn(ctx, "failed to delete order after checkout failure", err, slog.String("order.id", id))
	}
}

func (s *Service) correlateCart(ctx context.Context, order *domain.Order) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Clear(ctx, order.BuyerID); err != nil {
		s.warn(ctx, "failed to clear cart", err, slog.String("order.id", order.ID))
	}
	if err := s.carts.MarkRecovered(ctx, order.BuyerID, order.ID); err != nil {
		s.warn(ctx, "failed to mark abandoned cart recovered", err, slog.String("order.id", order.ID))
	}
}

func (s *Service) send(ctx context.Context, order *domain.Order, kind notifydomain.Kind) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(ctx, order.ID, kind, map[string]any{
		"buyerId": order.BuyerID,
		"status":  string(order.Status),
		"amount":  order.Amount.StringFixed(2),
	})
}
