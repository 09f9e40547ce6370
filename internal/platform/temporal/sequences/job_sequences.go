package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	jobactivities "github.com/Apurer/order-engine/internal/platform/temporal/activities/jobs"
)

func jobOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
}

// RunTrackingSyncSequence syncs every trackable order in one activity.
func RunTrackingSyncSequence(ctx workflow.Context) (*trackingports.Report, error) {
	logger := workflow.GetLogger(ctx)
	var report trackingports.Report
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, jobOptions(10*time.Minute)), jobactivities.SyncTrackingActivityName).Get(ctx, &report)
	if err != nil {
		logger.Error("tracking sync sequence failed", "error", err)
		return nil, err
	}
	logger.Info("tracking sync sequence completed", "checked", report.Checked, "updated", report.Updated)
	return &report, nil
}

// RunTrackingResyncSequence syncs a single order.
func RunTrackingResyncSequence(ctx workflow.Context, orderID string) (*trackingports.OrderResult, error) {
	logger := workflow.GetLogger(ctx)
	options := jobOptions(time.Minute)
	options.RetryPolicy.MaximumAttempts = 3
	var result trackingports.OrderResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), jobactivities.ResyncOrderActivityName, jobactivities.ResyncInput{OrderID: orderID}).Get(ctx, &result)
	if err != nil {
		logger.Error("tracking resync sequence failed", "orderId", orderID, "error", err)
		return nil, err
	}
	return &result, nil
}

// SweepResult pairs the two sweep reports.
type SweepResult struct {
	Unpaid    *ordertypes.SweepReport
	Abandoned *cartports.SweepReport
}

// RunSweepSequence runs the unpaid-order sweep then the abandoned-cart sweep.
// A failing cart sweep does not undo or hide the order sweep's result.
func RunSweepSequence(ctx workflow.Context) (*SweepResult, error) {
	logger := workflow.GetLogger(ctx)
	actx := workflow.WithActivityOptions(ctx, jobOptions(5*time.Minute))

	result := &SweepResult{}
	var unpaid ordertypes.SweepReport
	if err := workflow.ExecuteActivity(actx, jobactivities.SweepUnpaidActivityName).Get(ctx, &unpaid); err != nil {
		logger.Error("unpaid sweep failed", "error", err)
		return nil, err
	}
	result.Unpaid = &unpaid

	var abandoned cartports.SweepReport
	if err := workflow.ExecuteActivity(actx, jobactivities.SweepAbandonedActivityName).Get(ctx, &abandoned); err != nil {
		logger.Error("abandoned cart sweep failed", "error", err)
		return result, err
	}
	result.Abandoned = &abandoned
	logger.Info("sweep sequence completed", "cancelled", unpaid.Cancelled, "flagged", abandoned.Flagged)
	return result, nil
}
