package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Apurer/order-engine/internal/domains/notifications/domain"
	"github.com/Apurer/order-engine/internal/domains/notifications/ports"
)

const defaultSendTimeout = 5 * time.Second

// Dispatcher hands messages to a Notifier on a background goroutine.
// Delivery errors are logged and dropped.
type Dispatcher struct {
	notifier ports.Notifier
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(notifier ports.Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  defaultSendTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Send schedules delivery and returns immediately. The caller's cancellation
// does not abort delivery; the dispatcher's own timeout does.
func (d *Dispatcher) Send(ctx context.Context, orderID string, kind domain.Kind, payload map[string]any) {
	if d == nil || d.notifier == nil {
		return
	}
	msg := domain.Message{OrderID: orderID, Kind: kind, Payload: payload, OccurredAt: d.now().UTC()}
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.ErrorContext(detached, "notifier panicked", slog.String("order.id", orderID), slog.Any("panic", r))
			}
		}()
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := d.notifier.Notify(sendCtx, msg); err != nil {
			d.logger.LogAttrs(detached, slog.LevelWarn, "notification dropped",
				slog.String("order.id", orderID),
				slog.String("notification.kind", string(kind)),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

var _ ports.Sender = (*Dispatcher)(nil)
