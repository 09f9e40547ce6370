package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

const tracerName = "github.com/Apurer/order-engine/internal/domains/tracking/adapters/observability/synchronizer"

type Synchronizer struct {
	inner   ports.Synchronizer
	tracer  trace.Tracer
	logger  *slog.Logger
	updated metric.Int64Counter
}

type Option func(*Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Synchronizer) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Synchronizer) {
		if m != nil {
			s.updated, _ = m.Int64Counter("tracking.sync.orders_updated", metric.WithDescription("Orders advanced by carrier checkpoints"))
		}
	}
}

func New(inner ports.Synchronizer, opts ...Option) ports.Synchronizer {
	s := &Synchronizer{inner: inner, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
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

func (s *Synchronizer) SyncAll(ctx context.Context) (*ports.Report, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingSynchronizer.SyncAll")
	defer span.End()

	report, err := s.inner.SyncAll(ctx)
	if report != nil {
		span.SetAttributes(
			attribute.Int("tracking.checked", report.Checked),
			attribute.Int("tracking.updated", report.Updated),
			attribute.Int("tracking.failed", report.Failed))
		s.count(ctx, report.Updated)
	}
	if err != nil {
		return nil, s.fail(ctx, span, "tracking sync aborted", err)
	}
	return report, nil
}

func (s *Synchronizer) SyncOrder(ctx context.Context, orderID string) (*ports.OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingSynchronizer.SyncOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	result, err := s.inner.SyncOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail(ctx, span, "tracking resync failed", err, slog.String("order.id", orderID))
	}
	span.SetAttributes(attribute.String("order.status", string(result.To)), attribute.String("tracking.tag", result.Tag))
	if result.Changed() {
		s.count(ctx, 1)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "tracking resynced",
		slog.String("order.id", orderID), slog.String("order.status", string(result.To)), slog.Bool("recorded", result.Recorded))
	return result, nil
}

func (s *Synchronizer) Live(ctx context.Context, actor identity.Actor, orderID string) (*domain.Record, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingSynchronizer.Live", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	record, err := s.inner.Live(ctx, actor, orderID)
	if err != nil {
		return nil, s.fail(ctx, span, "live tracking failed", err, slog.String("order.id", orderID))
	}
	return record, nil
}

func (s *Synchronizer) count(ctx context.Context, n int) {
	if s.updated != nil && n > 0 {
		s.updated.Add(ctx, int64(n))
	}
}

func (s *Synchronizer) fail(ctx context.Context, span trace.Span, msg string, err error, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
	return err
}
