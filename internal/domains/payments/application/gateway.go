package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	inventoryports "github.com/Apurer/order-engine/internal/domains/inventory/ports"
	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	notifyports "github.com/Apurer/order-engine/internal/domains/notifications/ports"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/domains/payments/domain"
	"github.com/Apurer/order-engine/internal/domains/payments/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

// DefaultClaimTTL bounds how long one delivery may hold an event before
// another instance is allowed to retry it.
const DefaultClaimTTL = 2 * time.Minute

// Gateway turns verified payment events into paid, packing orders.
type Gateway struct {
	secret    []byte
	tolerance time.Duration
	claimTTL  time.Duration

	orders   ports.Orders
	ledger   inventoryports.Ledger
	markers  ports.MarkerStore
	claims   ports.ClaimStore
	carts    orderports.Carts
	loyalty  ports.Loyalty
	sessions ports.SessionLookup
	notifier notifyports.Sender
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Gateway)

func WithTolerance(d time.Duration) Option {
	return func(g *Gateway) { g.tolerance = d }
}

func WithClaimTTL(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.claimTTL = d
		}
	}
}

func WithCarts(carts orderports.Carts) Option {
	return func(g *Gateway) { g.carts = carts }
}

func WithLoyalty(loyalty ports.Loyalty) Option {
	return func(g *Gateway) { g.loyalty = loyalty }
}

func WithSessions(sessions ports.SessionLookup) Option {
	return func(g *Gateway) { g.sessions = sessions }
}

func WithNotifier(sender notifyports.Sender) Option {
	return func(g *Gateway) { g.notifier = sender }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGateway(secret []byte, orders ports.Orders, ledger inventoryports.Ledger, markers ports.MarkerStore, claims ports.ClaimStore, opts ...Option) *Gateway {
	g := &Gateway{
		secret:    secret,
		tolerance: domain.DefaultTolerance,
		claimTTL:  DefaultClaimTTL,
		orders:    orders,
		ledger:    ledger,
		markers:   markers,
		claims:    claims,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// HandleWebhook verifies and applies one provider callback. The returned
// error kind decides the HTTP status the provider sees.
func (g *Gateway) HandleWebhook(ctx context.Context, signature string, body []byte) (*domain.Result, error) {
	if err := domain.Verify(g.secret, signature, body, g.now(), g.tolerance); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "payment webhook rejected",
			slog.String("security.event", "webhook_signature_invalid"),
			slog.Int("body.bytes", len(body)),
			slog.String("reason", err.Error()))
		return nil, fmt.Errorf("%w: %w", failure.ErrSignature, err)
	}
	event, err := domain.ParseEvent(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrValidation, err)
	}
	if !event.ConfirmsPayment() {
		return &domain.Result{EventID: event.ID, OrderID: event.OrderID, Outcome: domain.OutcomeIgnored}, nil
	}
	return g.process(ctx, event.ID, event.OrderID, event.BuyerID)
}

// VerifyPayment asks the provider for the order's session status and applies
// the same confirmation the webhook would.
func (g *Gateway) VerifyPayment(ctx context.Context, actor identity.Actor, orderID string) (*domain.Result, error) {
	if actor.Anonymous() {
		return nil, failure.Unauthorized("identity required")
	}
	order, err := g.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, orderID)
	}
	if !actor.CanAccess(order.BuyerID) {
		return nil, failure.Forbidden("order %s belongs to another buyer", orderID)
	}
	if order.NeedsReconciliation() {
		return nil, fmt.Errorf("%w: order %s awaits operator reconciliation", failure.ErrReconciliation, orderID)
	}
	if order.Paid {
		return &domain.Result{OrderID: orderID, Outcome: domain.OutcomeAlreadyPaid}, nil
	}
	if order.ExternalSessionID == "" {
		return nil, failure.Conflict("order %s has no checkout session", orderID)
	}
	if g.sessions == nil {
		return nil, failure.External("checkout", errors.New("session lookup not configured"))
	}
	session, err := g.sessions.GetSession(ctx, order.ExternalSessionID)
	if err != nil {
		if errors.Is(err, failure.ErrExternalService) {
			return nil, err
		}
		return nil, failure.External("checkout", err)
	}
	eventID := domain.SessionEventID(session.ID)
	if session.PaymentStatus != domain.PaymentStatusPaid {
		return &domain.Result{EventID: eventID, OrderID: orderID, Outcome: domain.OutcomePending}, nil
	}
	return g.process(ctx, eventID, orderID, order.BuyerID)
}

func (g *Gateway) process(ctx context.Context, eventID, orderID, buyerID string) (*domain.Result, error) {
	seen, err := g.markers.Seen(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("check event marker: %w", err)
	}
	if seen {
		return &domain.Result{EventID: eventID, OrderID: orderID, Outcome: domain.OutcomeDuplicate}, nil
	}
	claimed, err := g.claims.Claim(ctx, eventID, g.claimTTL)
	if err != nil {
		return nil, fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		return nil, failure.Conflict("event %s is already being processed", eventID)
	}
	defer g.release(ctx, eventID)

	// Webhook and client verify carry different event ids for the same
	// payment, so confirmation is also serialised per order.
	orderKey := orderClaimKey(orderID)
	claimed, err = g.claims.Claim(ctx, orderKey, g.claimTTL)
	if err != nil {
		return nil, fmt.Errorf("claim order: %w", err)
	}
	if !claimed {
		return nil, failure.Conflict("payment for order %s is already being confirmed", orderID)
	}
	defer g.release(ctx, orderKey)

	outcome, err := g.confirm(ctx, eventID, orderID, buyerID)
	result := &domain.Result{EventID: eventID, OrderID: orderID, Outcome: outcome}
	if err != nil && outcome == "" {
		return nil, err
	}
	return result, err
}

func (g *Gateway) release(ctx context.Context, key string) {
	if err := g.claims.Release(context.WithoutCancel(ctx), key); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release claim",
			slog.String("claim.key", key), slog.String("error", err.Error()))
	}
}

func orderClaimKey(orderID string) string { return "order:" + orderID }

// confirm applies the payment. Only the caller that wins the guarded
// Placed→Packing update awards loyalty, so a replay never awards twice.
func (g *Gateway) confirm(ctx context.Context, eventID, orderID, buyerID string) (domain.Outcome, error) {
	order, err := g.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", mapOrderError(err, orderID)
	}
	if buyerID != "" && buyerID != order.BuyerID {
		return "", failure.Validation("event %s buyer does not own order %s", eventID, orderID)
	}
	if order.Paid {
		g.mark(ctx, eventID, orderID, domain.OutcomeAlreadyPaid)
		return domain.OutcomeAlreadyPaid, nil
	}
	if order.PaymentMethod != orderdomain.PaymentOnline {
		return "", failure.Conflict("order %s is not an online order", orderID)
	}
	if _, ok := orderdomain.Next(order.Status, orderdomain.EventPaymentConfirmed); !ok {
		return g.reconcile(ctx, eventID, order, fmt.Sprintf("order was %s when payment arrived", order.Status))
	}

	_, err = g.ledger.ValidateAndPrice(ctx, order.Lines())
	if err == nil {
		err = g.ledger.CommitDecrement(ctx, order.Adjustments())
	}
	if err != nil {
		if !reconcilable(err) {
			return "", err
		}
		return g.reconcile(ctx, eventID, order, err.Error())
	}

	applied, err := g.orders.Transition(ctx, orderports.TransitionRequest{
		ID: orderID, From: orderdomain.StatusPlaced, To: orderdomain.StatusPacking, RequireUnpaid: true, MarkPaid: true,
	})
	if err != nil || !applied {
		if rerr := g.ledger.Restore(ctx, order.Adjustments()); rerr != nil {
			g.logger.LogAttrs(ctx, slog.LevelError, "failed to restore stock after lost payment race",
				slog.String("order.id", orderID), slog.String("error", rerr.Error()))
		}
		if err != nil {
			return "", mapOrderError(err, orderID)
		}
		return g.lostRace(ctx, eventID, orderID)
	}

	order.Paid = true
	order.Status = orderdomain.StatusPacking
	g.afterConfirm(ctx, eventID, order)
	return domain.OutcomeConfirmed, nil
}

// reconcile keeps the money-received fact on the order without advancing it.
func (g *Gateway) reconcile(ctx context.Context, eventID string, order *orderdomain.Order, reason string) (domain.Outcome, error) {
	flagged, err := g.orders.FlagReconciliation(ctx, order.ID, reason, g.now())
	if err != nil {
		return "", mapOrderError(err, order.ID)
	}
	if !flagged {
		return g.lostRace(ctx, eventID, order.ID)
	}
	g.logger.LogAttrs(ctx, slog.LevelError, "payment received but order cannot be fulfilled",
		slog.String("order.id", order.ID),
		slog.String("event.id", eventID),
		slog.String("reason", reason))
	g.mark(ctx, eventID, order.ID, domain.OutcomeReconciliation)
	g.send(ctx, order, notifydomain.KindReconciliationRequired, map[string]any{"reason": reason})
	return domain.OutcomeReconciliation, fmt.Errorf("%w: order %s: %s", failure.ErrReconciliation, order.ID, reason)
}

// lostRace resolves a guard miss: either another path confirmed the payment
// first, or the order left Placed before the money arrived.
func (g *Gateway) lostRace(ctx context.Context, eventID, orderID string) (domain.Outcome, error) {
	current, err := g.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", mapOrderError(err, orderID)
	}
	if current.Paid {
		g.mark(ctx, eventID, orderID, domain.OutcomeAlreadyPaid)
		return domain.OutcomeAlreadyPaid, nil
	}
	return g.reconcile(ctx, eventID, current, fmt.Sprintf("order was %s when payment arrived", current.Status))
}

func (g *Gateway) afterConfirm(ctx context.Context, eventID string, order *orderdomain.Order) {
	if g.carts != nil {
		if err := g.carts.Clear(ctx, order.BuyerID); err != nil {
			g.warn(ctx, "failed to clear cart after payment", order.ID, err)
		}
		if err := g.carts.MarkRecovered(ctx, order.BuyerID, order.ID); err != nil {
			g.warn(ctx, "failed to mark abandoned cart recovered", order.ID, err)
		}
	}
	if g.loyalty != nil {
		if err := g.loyalty.Award(ctx, order.BuyerID, order.ID, order.Amount); err != nil {
			g.warn(ctx, "loyalty award failed", order.ID, err)
		}
	}
	g.mark(ctx, eventID, order.ID, domain.OutcomeConfirmed)
	g.send(ctx, order, notifydomain.KindPaymentConfirmed, nil)
	g.logger.LogAttrs(ctx, slog.LevelInfo, "payment confirmed",
		slog.String("order.id", order.ID), slog.String("event.id", eventID), slog.String("amount", order.Amount.StringFixed(2)))
}

// mark persists the idempotency marker. A lost marker is tolerated because
// the paid flag already short-circuits replays.
func (g *Gateway) mark(ctx context.Context, eventID, orderID string, outcome domain.Outcome) {
	if _, err := g.markers.Save(ctx, domain.ProcessedEvent{
		EventID: eventID, OrderID: orderID, Outcome: outcome, ProcessedAt: g.now().UTC(),
	}); err != nil {
		g.warn(ctx, "failed to persist event marker", orderID, err)
	}
}

func (g *Gateway) send(ctx context.Context, order *orderdomain.Order, kind notifydomain.Kind, extra map[string]any) {
	if g.notifier == nil {
		return
	}
	payload := map[string]any{
		"buyerId": order.BuyerID,
		"status":  string(order.Status),
		"amount":  order.Amount.StringFixed(2),
	}
	for k, v := range extra {
		payload[k] = v
	}
	g.notifier.Send(ctx, order.ID, kind, payload)
}

func (g *Gateway) warn(ctx context.Context, msg, orderID string, err error) {
	g.logger.LogAttrs(ctx, slog.LevelWarn, msg, slog.String("order.id", orderID), slog.String("error", err.Error()))
}

// reconcilable reports ledger failures that mean the goods are gone rather
// than that the store is unreachable.
func reconcilable(err error) bool {
	return errors.Is(err, failure.ErrStock) || errors.Is(err, failure.ErrNotFound) || errors.Is(err, failure.ErrValidation)
}

func mapOrderError(err error, orderID string) error {
	if errors.Is(err, orderports.ErrNotFound) {
		return failure.NotFound("order", orderID)
	}
	return err
}

var _ ports.Gateway = (*Gateway)(nil)
