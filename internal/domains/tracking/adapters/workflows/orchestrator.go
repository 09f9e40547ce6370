package workflows

import (
	"context"
	"errors"
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
	jobworkflows "github.com/Apurer/order-engine/internal/platform/temporal/workflows/jobs"
)

var (
	_ ports.Resync = (*TemporalResync)(nil)
	_ ports.Resync = (*InlineResync)(nil)
)

// TemporalResync runs manual resyncs as Temporal workflows keyed by order id.
type TemporalResync struct {
	client    client.Client
	taskQueue string
}

func NewTemporalResync(c client.Client) *TemporalResync {
	return &TemporalResync{client: c, taskQueue: jobworkflows.TaskQueue}
}

// Resync starts the resync workflow, or joins the run already in flight for the order.
func (o *TemporalResync) Resync(ctx context.Context, orderID string) (*ports.OrderResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal resync not configured")
	}
	workflowID := resyncWorkflowID(orderID)
	run, err := o.client.ExecuteWorkflow(ctx,
		client.StartWorkflowOptions{ID: workflowID, TaskQueue: o.taskQueue},
		jobworkflows.TrackingResyncWorkflowName,
		jobworkflows.ResyncWorkflowInput{OrderID: orderID, TraceID: workflowTraceID(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var result ports.OrderResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InlineResync calls the synchronizer directly, for tests and Temporal-less runs.
type InlineResync struct {
	sync ports.Synchronizer
}

func NewInlineResync(sync ports.Synchronizer) *InlineResync {
	return &InlineResync{sync: sync}
}

func (o *InlineResync) Resync(ctx context.Context, orderID string) (*ports.OrderResult, error) {
	if o == nil || o.sync == nil {
		return nil, errors.New("inline resync not configured")
	}
	return o.sync.SyncOrder(ctx, orderID)
}

func resyncWorkflowID(orderID string) string {
	return fmt.Sprintf("tracking-resync-%s", orderID)
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.TraceID().IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
