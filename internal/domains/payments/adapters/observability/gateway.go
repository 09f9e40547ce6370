package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/order-engine/internal/domains/payments/domain"
	"github.com/Apurer/order-engine/internal/domains/payments/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

const tracerName = "github.com/Apurer/order-engine/internal/domains/payments/adapters/observability/gateway"

// OutcomeRecorder receives one call per confirmation attempt.
type OutcomeRecorder interface {
	WebhookOutcome(source, outcome string)
}

type Gateway struct {
	inner    ports.Gateway
	tracer   trace.Tracer
	logger   *slog.Logger
	outcomes OutcomeRecorder
	attempts metric.Int64Counter
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(g *Gateway) {
		if m != nil {
			g.attempts, _ = m.Int64Counter("payments.gateway.attempts", metric.WithDescription("Payment confirmation attempts by outcome"))
		}
	}
}

func WithOutcomes(rec OutcomeRecorder) Option {
	return func(g *Gateway) { g.outcomes = rec }
}

func New(inner ports.Gateway, opts ...Option) ports.Gateway {
	g := &Gateway{inner: inner, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.tracer == nil {
		g.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return g
}

func (g *Gateway) HandleWebhook(ctx context.Context, signature string, body []byte) (*domain.Result, error) {
	ctx, span := g.tracer.Start(ctx, "PaymentGateway.HandleWebhook", trace.WithAttributes(attribute.Int("body.bytes", len(body))))
	defer span.End()

	result, err := g.inner.HandleWebhook(ctx, signature, body)
	g.finish(ctx, span, "webhook", result, err)
	return result, err
}

func (g *Gateway) VerifyPayment(ctx context.Context, actor identity.Actor, orderID string) (*domain.Result, error) {
	ctx, span := g.tracer.Start(ctx, "PaymentGateway.VerifyPayment", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	result, err := g.inner.VerifyPayment(ctx, actor, orderID)
	g.finish(ctx, span, "verify", result, err)
	return result, err
}

func (g *Gateway) finish(ctx context.Context, span trace.Span, source string, result *domain.Result, err error) {
	outcome := outcomeOf(result, err)
	span.SetAttributes(attribute.String("payment.outcome", outcome))
	if result != nil {
		span.SetAttributes(attribute.String("event.id", result.EventID), attribute.String("order.id", result.OrderID))
	}
	if g.outcomes != nil {
		g.outcomes.WebhookOutcome(source, outcome)
	}
	if g.attempts != nil {
		g.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source), attribute.String("outcome", outcome)))
	}
	if err == nil {
		if result != nil && result.Outcome != domain.OutcomeIgnored {
			g.logger.LogAttrs(ctx, slog.LevelInfo, "payment event handled",
				slog.String("source", source), slog.String("outcome", outcome), slog.String("order.id", result.OrderID))
		}
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	level := slog.LevelError
	if errors.Is(err, failure.ErrConflict) || errors.Is(err, failure.ErrValidation) || errors.Is(err, failure.ErrAuthorization) {
		level = slog.LevelWarn
	}
	g.logger.LogAttrs(ctx, level, "payment event failed", slog.String("source", source), slog.String("outcome", outcome), slog.String("error", err.Error()))
}

func outcomeOf(result *domain.Result, err error) string {
	switch {
	case result != nil && result.Outcome != "":
		return string(result.Outcome)
	case errors.Is(err, failure.ErrSignature):
		return "bad_signature"
	case errors.Is(err, failure.ErrConflict):
		return "in_flight"
	case errors.Is(err, failure.ErrNotFound):
		return "order_not_found"
	case err != nil:
		return "error"
	}
	return "unknown"
}

var _ ports.Gateway = (*Gateway)(nil)
