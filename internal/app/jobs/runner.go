// Package jobs runs the periodic background work shared by the API scheduler,
// the Temporal worker and the one-shot sweeper.
package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

const (
	JobTrackingSync   = "tracking_sync"
	JobTrackingResync = "tracking_resync"
	JobUnpaidSweep    = "unpaid_sweep"
	JobAbandonedCarts = "abandoned_carts"
)

const (
	DefaultUnpaidAfter    = 30 * time.Minute
	DefaultAbandonedAfter = 24 * time.Hour
)

// Recorder observes job runs.
type Recorder interface {
	JobRun(job string, started time.Time, err error, items map[string]int)
}

// UnpaidSweeper is the slice of the orders service the sweep needs.
type UnpaidSweeper interface {
	SweepUnpaid(ctx context.Context, cutoff time.Time) (*ordertypes.SweepReport, error)
}

// CartSweeper is the slice of the carts service the sweep needs.
type CartSweeper interface {
	SweepAbandoned(ctx context.Context, cutoff time.Time) (*cartports.SweepReport, error)
}

type Runner struct {
	tracking       trackingports.Synchronizer
	orders         UnpaidSweeper
	carts          CartSweeper
	unpaidAfter    time.Duration
	abandonedAfter time.Duration
	recorder       Recorder
	logger         *slog.Logger
	now            func() time.Time
}

type Option func(*Runner)

func WithCarts(carts CartSweeper) Option {
	return func(r *Runner) { r.carts = carts }
}

func WithUnpaidAfter(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.unpaidAfter = d
		}
	}
}

func WithAbandonedAfter(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.abandonedAfter = d
		}
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRunner(tracking trackingports.Synchronizer, orders UnpaidSweeper, opts ...Option) *Runner {
	r := &Runner{
		tracking:       tracking,
		orders:         orders,
		unpaidAfter:    DefaultUnpaidAfter,
		abandonedAfter: DefaultAbandonedAfter,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Runner) SyncTracking(ctx context.Context) (*trackingports.Report, error) {
	if r == nil || r.tracking == nil {
		return nil, errors.New("tracking job not configured")
	}
	started := r.now()
	report, err := r.tracking.SyncAll(ctx)
	items := map[string]int{}
	if report != nil {
		items["updated"] = report.Updated
		items["recorded"] = report.Recorded
		items["failed"] = report.Failed
	}
	r.record(ctx, JobTrackingSync, started, err, items)
	return report, err
}

func (r *Runner) ResyncOrder(ctx context.Context, orderID string) (*trackingports.OrderResult, error) {
	if r == nil || r.tracking == nil {
		return nil, errors.New("tracking job not configured")
	}
	started := r.now()
	result, err := r.tracking.SyncOrder(ctx, orderID)
	items := map[string]int{}
	if result != nil && result.Changed() {
		items["updated"] = 1
	}
	r.record(ctx, JobTrackingResync, started, err, items)
	return result, err
}

func (r *Runner) SweepUnpaid(ctx context.Context) (*ordertypes.SweepReport, error) {
	if r == nil || r.orders == nil {
		return nil, errors.New("unpaid sweep not configured")
	}
	started := r.now()
	report, err := r.orders.SweepUnpaid(ctx, started.Add(-r.unpaidAfter))
	items := map[string]int{}
	if report != nil {
		items["cancelled"] = report.Cancelled
		items["deleted"] = report.Deleted
		items["failed"] = report.Failed
	}
	r.record(ctx, JobUnpaidSweep, started, err, items)
	return report, err
}

// SweepAbandoned is a no-op when no cart service is configured.
func (r *Runner) SweepAbandoned(ctx context.Context) (*cartports.SweepReport, error) {
	if r == nil || r.carts == nil {
		return &cartports.SweepReport{}, nil
	}
	started := r.now()
	report, err := r.carts.SweepAbandoned(ctx, started.Add(-r.abandonedAfter))
	items := map[string]int{}
	if report != nil {
		items["flagged"] = report.Flagged
		items["failed"] = report.Failed
	}
	r.record(ctx, JobAbandonedCarts, started, err, items)
	return report, err
}

func (r *Runner) record(ctx context.Context, job string, started time.Time, err error, items map[string]int) {
	if r.recorder != nil {
		r.recorder.JobRun(job, started, err, items)
	}
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "background job failed",
			slog.String("job", job), slog.String("error", err.Error()))
	}
}
