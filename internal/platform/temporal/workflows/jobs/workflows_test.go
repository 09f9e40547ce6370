package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/platform/temporal/activities/jobs"
	"github.com/Apurer/order-engine/internal/platform/temporal/sequences"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

type fakeRunner struct {
	syncCalls   int
	resyncErr   error
	resyncCalls int
	cartErr     error
}

func (f *fakeRunner) SyncTracking(context.Context) (*trackingports.Report, error) {
	f.syncCalls++
	return &trackingports.Report{Checked: 3, Updated: 1}, nil
}

func (f *fakeRunner) ResyncOrder(_ context.Context, orderID string) (*trackingports.OrderResult, error) {
	f.resyncCalls++
	if f.resyncErr != nil {
		return nil, f.resyncErr
	}
	return &trackingports.OrderResult{OrderID: orderID, From: orderdomain.StatusShipped, To: orderdomain.StatusDelivered, Recorded: true}, nil
}

func (f *fakeRunner) SweepUnpaid(context.Context) (*ordertypes.SweepReport, error) {
	return &ordertypes.SweepReport{Checked: 2, Cancelled: 2, Deleted: 2}, nil
}

func (f *fakeRunner) SweepAbandoned(context.Context) (*cartports.SweepReport, error) {
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return &cartports.SweepReport{Checked: 1, Flagged: 1}, nil
}

func newEnv(t *testing.T, runner *fakeRunner) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := jobs.NewActivities(runner)
	env.RegisterActivityWithOptions(acts.SyncTracking, activity.RegisterOptions{Name: jobs.SyncTrackingActivityName})
	env.RegisterActivityWithOptions(acts.ResyncOrder, activity.RegisterOptions{Name: jobs.ResyncOrderActivityName})
	env.RegisterActivityWithOptions(acts.SweepUnpaid, activity.RegisterOptions{Name: jobs.SweepUnpaidActivityName})
	env.RegisterActivityWithOptions(acts.SweepAbandoned, activity.RegisterOptions{Name: jobs.SweepAbandonedActivityName})
	env.RegisterWorkflowWithOptions(TrackingSyncWorkflow, workflow.RegisterOptions{Name: TrackingSyncWorkflowName})
	env.RegisterWorkflowWithOptions(TrackingResyncWorkflow, workflow.RegisterOptions{Name: TrackingResyncWorkflowName})
	env.RegisterWorkflowWithOptions(SweepWorkflow, workflow.RegisterOptions{Name: SweepWorkflowName})
	return env
}

func TestTrackingSyncWorkflow(t *testing.T) {
	runner := &fakeRunner{}
	env := newEnv(t, runner)
	env.ExecuteWorkflow(TrackingSyncWorkflowName)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var report trackingports.Report
	require.NoError(t, env.GetWorkflowResult(&report))
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, runner.syncCalls)
}

func TestTrackingResyncWorkflow(t *testing.T) {
	env := newEnv(t, &fakeRunner{})
	env.ExecuteWorkflow(TrackingResyncWorkflowName, ResyncWorkflowInput{OrderID: "o-1"})

	require.NoError(t, env.GetWorkflowError())
	var result trackingports.OrderResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "o-1", result.OrderID)
	assert.Equal(t, orderdomain.StatusDelivered, result.To)
}

func TestTrackingResyncWorkflow_NotFoundIsNotRetried(t *testing.T) {
	runner := &fakeRunner{resyncErr: failure.NotFound("order", "o-1")}
	env := newEnv(t, runner)
	env.ExecuteWorkflow(TrackingResyncWorkflowName, ResyncWorkflowInput{OrderID: "o-1"})

	require.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, runner.resyncCalls)
}

func TestTrackingResyncWorkflow_TransientErrorIsRetried(t *testing.T) {
	runner := &fakeRunner{resyncErr: failure.External("carrier", errors.New("502"))}
	env := newEnv(t, runner)
	env.ExecuteWorkflow(TrackingResyncWorkflowName, ResyncWorkflowInput{OrderID: "o-1"})

	require.Error(t, env.GetWorkflowError())
	assert.Equal(t, 3, runner.resyncCalls)
}

func TestSweepWorkflow(t *testing.T) {
	env := newEnv(t, &fakeRunner{})
	env.ExecuteWorkflow(SweepWorkflowName)

	require.NoError(t, env.GetWorkflowError())
	var result sequences.SweepResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.NotNil(t, result.Unpaid)
	require.NotNil(t, result.Abandoned)
	assert.Equal(t, 2, result.Unpaid.Deleted)
	assert.Equal(t, 1, result.Abandoned.Flagged)
}

func TestScheduleCronSpec(t *testing.T) {
	assert.Equal(t, "*/15 * * * *", Schedule{Every: 15 * time.Minute}.CronSpec())
	assert.Equal(t, "0 */2 * * *", Schedule{Every: 2 * time.Hour}.CronSpec())
	assert.Equal(t, "*/1 * * * *", Schedule{Every: 10 * time.Second}.CronSpec())
}
