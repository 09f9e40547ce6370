package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Schedule is a cron workflow the worker keeps running.
type Schedule struct {
	ID       string
	Workflow string
	Every    time.Duration
}

// CronSpec renders Every as a Temporal cron expression.
func (s Schedule) CronSpec() string {
	minutes := int(s.Every / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes >= 60 && minutes%60 == 0 {
		return fmt.Sprintf("0 */%d * * *", minutes/60)
	}
	return fmt.Sprintf("*/%d * * * *", minutes)
}

func DefaultSchedules(trackingEvery, sweepEvery time.Duration) []Schedule {
	return []Schedule{
		{ID: "order-engine-tracking-sync", Workflow: TrackingSyncWorkflowName, Every: trackingEvery},
		{ID: "order-engine-sweep", Workflow: SweepWorkflowName, Every: sweepEvery},
	}
}

// Starter is the slice of client.Client needed to start cron workflows.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// EnsureSchedules starts each cron workflow; one already running is left alone.
func EnsureSchedules(ctx context.Context, c Starter, logger *slog.Logger, schedules []Schedule) error {
	for _, s := range schedules {
		_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:           s.ID,
			TaskQueue:    TaskQueue,
			CronSchedule: s.CronSpec(),
		}, s.Workflow)
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		switch {
		case err == nil:
			logger.Info("cron workflow started", slog.String("workflowId", s.ID), slog.String("cron", s.CronSpec()))
		case errors.As(err, &alreadyStarted):
			logger.Info("cron workflow already running", slog.String("workflowId", s.ID))
		default:
			return fmt.Errorf("start cron workflow %s: %w", s.ID, err)
		}
	}
	return nil
}
