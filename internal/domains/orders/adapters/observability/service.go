package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

const tracerName = "github.com/Apurer/order-engine/internal/domains/orders/adapters/observability/service"

// Service decorates the order service with tracing, logging, and metrics.
type Service struct {
	inner   orderports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core order service.
func New(inner orderports.Service, opts ...Option) orderports.Service {
	s := &Service{
		inner:   inner,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) PlaceCOD(ctx context.Context, input ordertypes.PlaceOrderInput) (*orderdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceCOD",
		trace.WithAttributes(attribute.String("buyer.id", input.Actor.ID), attribute.Int("cart.lines", len(input.Items))))
	defer span.End()

	s.logInfo(ctx, "placing cod order", slog.String("buyer.id", input.Actor.ID), slog.Int("cart.lines", len(input.Items)))
	order, err := s.inner.PlaceCOD(ctx, input)
	if err != nil {
		s.metrics.recordRejected(ctx, orderdomain.PaymentCOD, err)
		return nil, s.handleError(ctx, span, err, "failed to place cod order", slog.String("buyer.id", input.Actor.ID))
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	s.metrics.recordPlaced(ctx, order.PaymentMethod)
	s.logInfo(ctx, "cod order placed", slog.String("order.id", order.ID), slog.String("amount", order.Amount.StringFixed(2)))
	return order, nil
}

func (s *Service) PlaceOnline(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OnlineCheckout, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOnline",
		trace.WithAttributes(attribute.String("buyer.id", input.Actor.ID), attribute.Int("cart.lines", len(input.Items))))
	defer span.End()

	s.logInfo(ctx, "placing online order", slog.String("buyer.id", input.Actor.ID), slog.Int("cart.lines", len(input.Items)))
	checkout, err := s.inner.PlaceOnline(ctx, input)
	if err != nil {
		s.metrics.recordRejected(ctx, orderdomain.PaymentOnline, err)
		return nil, s.handleError(ctx, span, err, "failed to place online order", slog.String("buyer.id", input.Actor.ID))
	}
	span.SetAttributes(attribute.String("order.id", checkout.Order.ID), attribute.String("checkout.session", checkout.SessionID))
	s.metrics.recordPlaced(ctx, orderdomain.PaymentOnline)
	s.logInfo(ctx, "online order awaiting payment", slog.String("order.id", checkout.Order.ID), slog.String("checkout.session", checkout.SessionID))
	return checkout, nil
}

func (s *Service) Get(ctx context.Context, ref ordertypes.OrderRef) (*orderdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", ref.ID)))
	defer span.End()

	order, err := s.inner.Get(ctx, ref)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", ref.ID))
	}
	return order, nil
}

func (s *Service) ListForBuyer(ctx context.Context, ref ordertypes.OrderRef) ([]*orderdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListForBuyer", trace.WithAttributes(attribute.String("buyer.id", ref.Actor.ID)))
	defer span.End()

	orders, err := s.inner.ListForBuyer(ctx, ref)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list buyer orders", slog.String("buyer.id", ref.Actor.ID))
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

func (s *Service) Cancel(ctx context.Context, ref ordertypes.OrderRef) (*orderdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.String("order.id", ref.ID)))
	defer span.End()

	s.logInfo(ctx, "cancelling order", slog.String("order.id", ref.ID), slog.String("actor.role", string(ref.Actor.Role)))
	order, err := s.inner.Cancel(ctx, ref)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel order", slog.String("order.id", ref.ID))
	}
	s.metrics.recordTransition(ctx, orderdomain.StatusCancelled)
	s.logInfo(ctx, "order cancelled", slog.String("order.id", order.ID), slog.String("payment.method", string(order.PaymentMethod)))
	return order, nil
}

func (s *Service) Invoice(ctx context.Context, ref ordertypes.OrderRef) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Invoice", trace.WithAttributes(attribute.String("order.id", ref.ID)))
	defer span.End()

	invoice, err := s.inner.Invoice(ctx, ref)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to render invoice", slog.String("order.id", ref.ID))
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, input ordertypes.ListOrdersInput) (*ordertypes.OrderPage, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.List",
		trace.WithAttributes(attribute.Int("page", input.Page), attribute.String("order.status", string(input.Status))))
	defer span.End()

	page, err := s.inner.List(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int64("orders.total", page.Total))
	return page, nil
}

func (s *Service) UpdateStatus(ctx context.Context, input ordertypes.UpdateStatusInput) (*orderdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", input.ID), attribute.String("order.status.to", string(input.To))))
	defer span.End()

	s.logInfo(ctx, "updating order status", slog.String("order.id", input.ID), slog.String("status", string(input.To)))
	order, err := s.inner.UpdateStatus(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update order status", slog.String("order.id", input.ID))
	}
	s.metrics.recordTransition(ctx, order.Status)
	return order, nil
}

func (s *Service) AssignTracking(ctx context.Context, input ordertypes.AssignTrackingInput) (*orderdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AssignTracking",
		trace.WithAttributes(attribute.String("order.id", input.ID), attribute.String("courier", input.Courier)))
	defer span.End()

	order, err := s.inner.AssignTracking(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to assign tracking", slog.String("order.id", input.ID))
	}
	s.metrics.recordTransition(ctx, order.Status)
	s.logInfo(ctx, "order shipped", slog.String("order.id", order.ID), slog.String("tracking.number", order.Tracking.Number))
	return order, nil
}

func (s *Service) Stats(ctx context.Context) (orderports.Stats, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Stats")
	defer span.End()

	stats, err := s.inner.Stats(ctx)
	if err != nil {
		return orderports.Stats{}, s.handleError(ctx, span, err, "failed to compute order stats")
	}
	span.SetAttributes(attribute.Int64("orders.total", stats.Total))
	return stats, nil
}

func (s *Service) SweepUnpaid(ctx context.Context, cutoff time.Time) (*ordertypes.SweepReport, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.SweepUnpaid", trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339))))
	defer span.End()

	report, err := s.inner.SweepUnpaid(ctx, cutoff)
	if err != nil {
		return report, s.handleError(ctx, span, err, "unpaid order sweep failed")
	}
	span.SetAttributes(attribute.Int("sweep.cancelled", report.Cancelled), attribute.Int("sweep.failed", report.Failed))
	return report, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger != nil {
		level := slog.LevelError
		if expected(err) {
			level = slog.LevelWarn
		}
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, level, msg, attrs...)
	}
	return err
}

// expected reports caller-side errors that are not service faults.
func expected(err error) bool {
	for _, kind := range []error{failure.ErrValidation, failure.ErrStock, failure.ErrAuthorization, failure.ErrNotFound, failure.ErrConflict} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

type serviceMetrics struct {
	ordersPlaced   metric.Int64Counter
	ordersRejected metric.Int64Counter
	transitions    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("orders.service.orders_placed", metric.WithDescription("Number of orders placed"))
	ordersRejected, _ := m.Int64Counter("orders.service.orders_rejected", metric.WithDescription("Number of placements rejected"))
	transitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Status transitions applied by operators and buyers"))
	return serviceMetrics{ordersPlaced: ordersPlaced, ordersRejected: ordersRejected, transitions: transitions}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, method orderdomain.PaymentMethod) {
	if m.ordersPlaced != nil {
		m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", string(method))))
	}
}

func (m serviceMetrics) recordRejected(ctx context.Context, method orderdomain.PaymentMethod, err error) {
	if m.ordersRejected == nil {
		return
	}
	reason := "internal"
	if kind := failure.Kind(err); kind != nil {
		reason = kind.Error()
	}
	m.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", string(method)), attribute.String("reason", reason)))
}

func (m serviceMetrics) recordTransition(ctx context.Context, to orderdomain.Status) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(to))))
	}
}

var _ orderports.Service = (*Service)(nil)
