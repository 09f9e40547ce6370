package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	trackingdomain "github.com/Apurer/order-engine/internal/domains/tracking/domain"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTracking struct {
	syncs atomic.Int64
	err   error
}

func (f *fakeTracking) SyncAll(context.Context) (*trackingports.Report, error) {
	f.syncs.Add(1)
	return &trackingports.Report{Checked: 3, Updated: 2, Recorded: 1, Failed: 1}, f.err
}

func (f *fakeTracking) SyncOrder(_ context.Context, id string) (*trackingports.OrderResult, error) {
	return &trackingports.OrderResult{OrderID: id, From: orderdomain.StatusShipped, To: orderdomain.StatusDelivered}, f.err
}

func (f *fakeTracking) Live(context.Context, identity.Actor, string) (*trackingdomain.Record, error) {
	return nil, errors.New("not used")
}

type fakeOrders struct{ cutoff time.Time }

func (f *fakeOrders) SweepUnpaid(_ context.Context, cutoff time.Time) (*ordertypes.SweepReport, error) {
	f.cutoff = cutoff
	return &ordertypes.SweepReport{Cutoff: cutoff, Checked: 2, Cancelled: 2, Deleted: 2}, nil
}

type fakeCarts struct{ cutoff time.Time }

func (f *fakeCarts) SweepAbandoned(_ context.Context, cutoff time.Time) (*cartports.SweepReport, error) {
	f.cutoff = cutoff
	return &cartports.SweepReport{Cutoff: cutoff, Checked: 1, Flagged: 1}, nil
}

type run struct {
	job   string
	err   error
	items map[string]int
}

type recorder struct {
	mu   sync.Mutex
	runs []run
}

func (r *recorder) JobRun(job string, _ time.Time, err error, items map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run{job: job, err: err, items: items})
}

func TestRunner_SweepCutoffs(t *testing.T) {
	orders, carts, rec := &fakeOrders{}, &fakeCarts{}, &recorder{}
	r := NewRunner(&fakeTracking{}, orders,
		WithCarts(carts),
		WithUnpaidAfter(45*time.Minute),
		WithAbandonedAfter(2*time.Hour),
		WithRecorder(rec),
		WithClock(func() time.Time { return now }),
	)

	report, err := r.SweepUnpaid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, now.Add(-45*time.Minute), orders.cutoff)

	_, err = r.SweepAbandoned(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), carts.cutoff)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, JobUnpaidSweep, rec.runs[0].job)
	assert.Equal(t, 2, rec.runs[0].items["cancelled"])
	assert.Equal(t, JobAbandonedCarts, rec.runs[1].job)
	assert.Equal(t, 1, rec.runs[1].items["flagged"])
}

func TestRunner_RecordsTrackingFailures(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("carrier down")
	r := NewRunner(&fakeTracking{err: boom}, &fakeOrders{}, WithRecorder(rec))

	report, err := r.SyncTracking(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, report.Updated, "partial report is returned")

	_, err = r.ResyncOrder(context.Background(), "o-1")
	require.ErrorIs(t, err, boom)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, JobTrackingSync, rec.runs[0].job)
	assert.ErrorIs(t, rec.runs[0].err, boom)
	assert.Equal(t, JobTrackingResync, rec.runs[1].job)
	assert.Equal(t, 1, rec.runs[1].items["updated"])
}

func TestRunner_AbandonedSweepWithoutCarts(t *testing.T) {
	r := NewRunner(&fakeTracking{}, &fakeOrders{})
	report, err := r.SweepAbandoned(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Flagged)
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	tracking := &fakeTracking{}
	r := NewRunner(tracking, &fakeOrders{})
	s := NewScheduler(r, 5*time.Millisecond, 0)
	require.Len(t, s.tasks, 1, "non-positive intervals are skipped")

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return tracking.syncs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	s.Wait()
	settled := tracking.syncs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, tracking.syncs.Load())
}
