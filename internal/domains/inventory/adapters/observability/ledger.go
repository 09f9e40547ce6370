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

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/domains/inventory/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

const tracerName = "github.com/Apurer/order-engine/internal/domains/inventory/adapters/observability"

// Ledger decorates the inventory ledger with tracing, logging, and metrics.
type Ledger struct {
	inner   ports.Ledger
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics ledgerMetrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(l *Ledger) {
		l.metrics = newLedgerMetrics(m)
	}
}

// New wraps the core ledger.
func New(inner ports.Ledger, opts ...Option) ports.Ledger {
	l := &Ledger{
		inner:  inner,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.tracer == nil {
		l.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return l
}

func (l *Ledger) ValidateAndPrice(ctx context.Context, lines []domain.Line) ([]domain.PricedLine, error) {
	ctx, span := l.tracer.Start(ctx, "InventoryLedger.ValidateAndPrice", trace.WithAttributes(attribute.Int("cart.lines", len(lines))))
	defer span.End()

	priced, err := l.inner.ValidateAndPrice(ctx, lines)
	if err != nil {
		l.metrics.recordRejected(ctx, "validate", err)
		return nil, l.handleError(ctx, span, err, "cart validation failed", slog.Int("cart.lines", len(lines)))
	}
	return priced, nil
}

func (l *Ledger) CommitDecrement(ctx context.Context, adjustments []domain.Adjustment) error {
	ctx, span := l.tracer.Start(ctx, "InventoryLedger.CommitDecrement", trace.WithAttributes(attribute.Int("stock.items", len(adjustments))))
	defer span.End()

	if err := l.inner.CommitDecrement(ctx, adjustments); err != nil {
		l.metrics.recordRejected(ctx, "commit", err)
		return l.handleError(ctx, span, err, "stock commit failed", slog.Int("stock.items", len(adjustments)))
	}
	l.metrics.recordMoved(ctx, "decrement", adjustments)
	l.logInfo(ctx, "stock committed", slog.Int("stock.items", len(adjustments)))
	return nil
}

func (l *Ledger) Restore(ctx context.Context, adjustments []domain.Adjustment) error {
	ctx, span := l.tracer.Start(ctx, "InventoryLedger.Restore", trace.WithAttributes(attribute.Int("stock.items", len(adjustments))))
	defer span.End()

	if err := l.inner.Restore(ctx, adjustments); err != nil {
		return l.handleError(ctx, span, err, "stock restore failed", slog.Int("stock.items", len(adjustments)))
	}
	l.metrics.recordMoved(ctx, "restore", adjustments)
	l.logInfo(ctx, "stock restored", slog.Int("stock.items", len(adjustments)))
	return nil
}

func (l *Ledger) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *Ledger) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if l.logger != nil {
		level := slog.LevelError
		if errors.Is(err, failure.ErrValidation) || errors.Is(err, failure.ErrStock) || errors.Is(err, failure.ErrNotFound) {
			level = slog.LevelInfo
		}
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.LogAttrs(ctx, level, msg, attrs...)
	}
	return err
}

type ledgerMetrics struct {
	unitsMoved metric.Int64Counter
	rejections metric.Int64Counter
}

func newLedgerMetrics(m metric.Meter) ledgerMetrics {
	if m == nil {
		return ledgerMetrics{}
	}
	unitsMoved, _ := m.Int64Counter("inventory.ledger.units_moved", metric.WithDescription("Stock units decremented or restored"))
	rejections, _ := m.Int64Counter("inventory.ledger.rejections", metric.WithDescription("Ledger operations rejected by validation or stock"))
	return ledgerMetrics{unitsMoved: unitsMoved, rejections: rejections}
}

func (m ledgerMetrics) recordMoved(ctx context.Context, direction string, adjustments []domain.Adjustment) {
	if m.unitsMoved == nil {
		return
	}
	var units int64
	for _, adj := range adjustments {
		units += int64(adj.Quantity)
	}
	m.unitsMoved.Add(ctx, units, metric.WithAttributes(attribute.String("direction", direction)))
}

func (m ledgerMetrics) recordRejected(ctx context.Context, op string, err error) {
	if m.rejections == nil {
		return
	}
	reason := "other"
	if kind := failure.Kind(err); kind != nil {
		reason = kind.Error()
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("reason", reason)))
}

var _ ports.Ledger = (*Ledger)(nil)
