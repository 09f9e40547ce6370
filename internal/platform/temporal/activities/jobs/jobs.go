package jobs

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

const (
	// SyncTrackingActivityName syncs every trackable order with the carrier.
	SyncTrackingActivityName = "jobs.activities.SyncTracking"
	// ResyncOrderActivityName syncs one order with the carrier.
	ResyncOrderActivityName = "jobs.activities.ResyncOrder"
	// SweepUnpaidActivityName cancels and deletes stale unpaid online orders.
	SweepUnpaidActivityName = "jobs.activities.SweepUnpaid"
	// SweepAbandonedActivityName flags carts idle past the abandonment window.
	SweepAbandonedActivityName = "jobs.activities.SweepAbandoned"
)

// Runner is the job surface the activities delegate to.
type Runner interface {
	SyncTracking(ctx context.Context) (*trackingports.Report, error)
	ResyncOrder(ctx context.Context, orderID string) (*trackingports.OrderResult, error)
	SweepUnpaid(ctx context.Context) (*ordertypes.SweepReport, error)
	SweepAbandoned(ctx context.Context) (*cartports.SweepReport, error)
}

// ResyncInput identifies the order a manual resync targets.
type ResyncInput struct {
	OrderID string
}

// Activities groups background job activities.
type Activities struct {
	runner Runner
}

func NewActivities(runner Runner) *Activities {
	return &Activities{runner: runner}
}

func (a *Activities) SyncTracking(ctx context.Context) (*trackingports.Report, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil {
		logger.Error("tracking activity not initialized")
		return nil, errors.New("tracking activity not initialized")
	}
	logger.Info("SyncTracking activity started")
	report, err := a.runner.SyncTracking(ctx)
	if err != nil {
		logger.Error("SyncTracking activity failed", "error", err)
		return nil, err
	}
	logger.Info("SyncTracking activity completed", "checked", report.Checked, "updated", report.Updated, "failed", report.Failed)
	return report, nil
}

func (a *Activities) ResyncOrder(ctx context.Context, input ResyncInput) (*trackingports.OrderResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil {
		logger.Error("resync activity not initialized", "orderId", input.OrderID)
		return nil, errors.New("resync activity not initialized")
	}
	logger.Info("ResyncOrder activity started", "orderId", input.OrderID)
	result, err := a.runner.ResyncOrder(ctx, input.OrderID)
	if err != nil {
		logger.Error("ResyncOrder activity failed", "orderId", input.OrderID, "error", err)
		return nil, nonRetryable(err)
	}
	logger.Info("ResyncOrder activity completed", "orderId", input.OrderID, "from", result.From, "to", result.To)
	return result, nil
}

func (a *Activities) SweepUnpaid(ctx context.Context) (*ordertypes.SweepReport, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil {
		logger.Error("unpaid sweep activity not initialized")
		return nil, errors.New("unpaid sweep activity not initialized")
	}
	report, err := a.runner.SweepUnpaid(ctx)
	if err != nil {
		logger.Error("SweepUnpaid activity failed", "error", err)
		return nil, err
	}
	logger.Info("SweepUnpaid activity completed", "cancelled", report.Cancelled, "deleted", report.Deleted)
	return report, nil
}

func (a *Activities) SweepAbandoned(ctx context.Context) (*cartports.SweepReport, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil {
		logger.Error("abandoned cart activity not initialized")
		return nil, errors.New("abandoned cart activity not initialized")
	}
	report, err := a.runner.SweepAbandoned(ctx)
	if err != nil {
		logger.Error("SweepAbandoned activity failed", "error", err)
		return nil, err
	}
	logger.Info("SweepAbandoned activity completed", "flagged", report.Flagged)
	return report, nil
}

// nonRetryable stops Temporal retrying errors a retry cannot fix.
func nonRetryable(err error) error {
	switch failure.Kind(err) {
	case failure.ErrValidation, failure.ErrNotFound, failure.ErrConflict:
		return temporal.NewNonRetryableApplicationError(err.Error(), "order_engine.NonRetryable", err)
	}
	return err
}
