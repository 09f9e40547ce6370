package jobs

import (
	"go.temporal.io/sdk/workflow"

	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/platform/temporal/sequences"
)

const (
	// TaskQueue is consumed by the order-engine worker.
	TaskQueue = "ORDER_JOBS"

	TrackingSyncWorkflowName   = "jobs.workflows.TrackingSync"
	TrackingResyncWorkflowName = "jobs.workflows.TrackingResync"
	SweepWorkflowName          = "jobs.workflows.Sweep"
)

// ResyncWorkflowInput carries the order to resync and the caller's trace id.
type ResyncWorkflowInput struct {
	OrderID string
	TraceID string
}

// TrackingSyncWorkflow is started on a cron schedule.
func TrackingSyncWorkflow(ctx workflow.Context) (*trackingports.Report, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("TrackingSyncWorkflow started")
	report, err := sequences.RunTrackingSyncSequence(ctx)
	if err != nil {
		logger.Error("TrackingSyncWorkflow failed", "error", err)
		return nil, err
	}
	return report, nil
}

// TrackingResyncWorkflow is keyed by order id, so concurrent resyncs of one order collapse.
func TrackingResyncWorkflow(ctx workflow.Context, input ResyncWorkflowInput) (*trackingports.OrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("TrackingResyncWorkflow started", withTraceID(input.TraceID, "orderId", input.OrderID)...)
	result, err := sequences.RunTrackingResyncSequence(ctx, input.OrderID)
	if err != nil {
		logger.Error("TrackingResyncWorkflow failed", withTraceID(input.TraceID, "orderId", input.OrderID, "error", err)...)
		return nil, err
	}
	logger.Info("TrackingResyncWorkflow completed", withTraceID(input.TraceID, "orderId", input.OrderID, "to", result.To)...)
	return result, nil
}

func SweepWorkflow(ctx workflow.Context) (*sequences.SweepResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("SweepWorkflow started")
	result, err := sequences.RunSweepSequence(ctx)
	if err != nil {
		logger.Error("SweepWorkflow failed", "error", err)
		return result, err
	}
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
