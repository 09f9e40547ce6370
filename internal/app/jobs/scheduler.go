package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs the periodic jobs in-process when no Temporal worker is
// available. Each task has its own ticker; a slow run delays only its own next tick.
type Scheduler struct {
	logger *slog.Logger
	tasks  []task
	wg     sync.WaitGroup
}

type task struct {
	name  string
	every time.Duration
	run   func(context.Context) error
}

func NewScheduler(runner *Runner, trackingEvery, sweepEvery time.Duration) *Scheduler {
	s := &Scheduler{logger: runner.logger}
	s.add(JobTrackingSync, trackingEvery, func(ctx context.Context) error {
		_, err := runner.SyncTracking(ctx)
		return err
	})
	s.add(JobUnpaidSweep, sweepEvery, func(ctx context.Context) error {
		_, err := runner.SweepUnpaid(ctx)
		return err
	})
	s.add(JobAbandonedCarts, sweepEvery, func(ctx context.Context) error {
		_, err := runner.SweepAbandoned(ctx)
		return err
	})
	return s
}

func (s *Scheduler) add(name string, every time.Duration, run func(context.Context) error) {
	if every <= 0 {
		return
	}
	s.tasks = append(s.tasks, task{name: name, every: every, run: run})
}

// Start launches every task until ctx is cancelled. Errors are already
// recorded by the runner; the loop keeps going.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		s.wg.Add(1)
		go func(t task) {
			defer s.wg.Done()
			ticker := time.NewTicker(t.every)
			defer ticker.Stop()
			s.logger.Info("in-process job scheduled", slog.String("job", t.name), slog.Duration("every", t.every))
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_ = t.run(ctx)
				}
			}
		}(t)
	}
}

// Wait blocks until every task loop has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }
