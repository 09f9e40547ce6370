// Package retry bounds carrier calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// FetchRecorder observes each final fetch outcome.
type FetchRecorder interface {
	CarrierFetch(err error)
}

// Carrier retries transient fetch failures. ErrUnknownShipment and context
// cancellation are returned immediately.
type Carrier struct {
	inner       ports.Carrier
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	logger      *slog.Logger
	recorder    FetchRecorder
}

type Option func(*Carrier)

func WithMaxAttempts(n int) Option {
	return func(c *Carrier) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithIntervals(initial, max time.Duration) Option {
	return func(c *Carrier) {
		if initial > 0 {
			c.initial = initial
		}
		if max >= c.initial {
			c.max = max
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Carrier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithRecorder(recorder FetchRecorder) Option {
	return func(c *Carrier) { c.recorder = recorder }
}

func New(inner ports.Carrier, opts ...Option) *Carrier {
	c := &Carrier{
		inner:       inner,
		maxAttempts: DefaultMaxAttempts,
		initial:     DefaultInitialInterval,
		max:         DefaultMaxInterval,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Carrier) Fetch(ctx context.Context, number, courier string) (*domain.Record, error) {
	attempt := 0
	operation := func() (*domain.Record, error) {
		attempt++
		record, err := c.inner.Fetch(ctx, number, courier)
		if err == nil {
			return record, nil
		}
		if errors.Is(err, ports.ErrUnknownShipment) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "carrier fetch failed, retrying",
			slog.String("tracking.number", number),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}

	record, err := backoff.RetryNotifyWithData(operation, c.policy(ctx), notify)
	if c.recorder != nil {
		c.recorder.CarrierFetch(err)
	}
	return record, err
}

func (c *Carrier) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initial
	exp.MaxInterval = c.max
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxAttempts-1)), ctx)
}

var _ ports.Carrier = (*Carrier)(nil)
