package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/order-engine/internal/app/api"
	platformobservability "github.com/Apurer/order-engine/internal/platform/observability"
	jobactivities "github.com/Apurer/order-engine/internal/platform/temporal/activities/jobs"
	jobworkflows "github.com/Apurer/order-engine/internal/platform/temporal/workflows/jobs"
)

func main() {
	ctx := context.Background()
	const serviceName = "order-engine-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName,
		platformobservability.WithLogLevel(cfg.LogLevel),
		platformobservability.WithLogFormat(cfg.LogFormat),
	)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	components, err := api.Build(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to wire components", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer components.Close()
	activities := jobactivities.NewActivities(components.Jobs)

	temporalClient, err := api.ConnectTemporal(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, jobworkflows.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(jobworkflows.TrackingSyncWorkflow, workflow.RegisterOptions{Name: jobworkflows.TrackingSyncWorkflowName})
	w.RegisterWorkflowWithOptions(jobworkflows.TrackingResyncWorkflow, workflow.RegisterOptions{Name: jobworkflows.TrackingResyncWorkflowName})
	w.RegisterWorkflowWithOptions(jobworkflows.SweepWorkflow, workflow.RegisterOptions{Name: jobworkflows.SweepWorkflowName})
	w.RegisterActivityWithOptions(activities.SyncTracking, activity.RegisterOptions{Name: jobactivities.SyncTrackingActivityName})
	w.RegisterActivityWithOptions(activities.ResyncOrder, activity.RegisterOptions{Name: jobactivities.ResyncOrderActivityName})
	w.RegisterActivityWithOptions(activities.SweepUnpaid, activity.RegisterOptions{Name: jobactivities.SweepUnpaidActivityName})
	w.RegisterActivityWithOptions(activities.SweepAbandoned, activity.RegisterOptions{Name: jobactivities.SweepAbandonedActivityName})

	schedules := jobworkflows.DefaultSchedules(cfg.TrackingSyncInterval, cfg.SweepInterval)
	if err := jobworkflows.EnsureSchedules(ctx, temporalClient, logger, schedules); err != nil {
		logger.Error("failed to ensure cron workflows", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("worker listening", slog.String("taskQueue", jobworkflows.TaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
