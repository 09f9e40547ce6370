package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	notifymemory "github.com/Apurer/order-engine/internal/domains/notifications/adapters/memory"
	notifyapp "github.com/Apurer/order-engine/internal/domains/notifications/application"
	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	ordermemory "github.com/Apurer/order-engine/internal/domains/orders/adapters/memory"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/domains/tracking/adapters/memory"
	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	sync     *Synchronizer
	orders   *ordermemory.Repository
	carrier  *memory.Carrier
	sent     *notifymemory.Notifier
	dispatch *notifyapp.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:  ordermemory.NewRepository(),
		carrier: memory.NewCarrier(),
		sent:    notifymemory.NewNotifier(),
	}
	f.dispatch = notifyapp.NewDispatcher(f.sent)
	f.sync = NewSynchronizer(f.orders, f.carrier,
		WithNotifier(f.dispatch),
		WithClock(func() time.Time { return now }))
	return f
}

// shipped creates a COD order and walks it to Shipped with the given tracking number.
func (f *fixture) shipped(t *testing.T, id, number string) {
	t.Helper()
	ctx := context.Background()
	order, err := orderdomain.NewOrder(id, "buyer-1", []inventorydomain.PricedLine{
		{ProductID: "tee", Name: "Tee", Quantity: 1, UnitPrice: decimal.RequireFromString("25.00")},
	}, orderdomain.Address{FullName: "Ada", Line1: "1 Main", City: "Town", PostalCode: "1", Country: "US"},
		orderdomain.PaymentCOD, decimal.NewFromInt(10), now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(ctx, order))
	applied, err := f.orders.Transition(ctx, orderports.TransitionRequest{ID: id, From: orderdomain.StatusPlaced, To: orderdomain.StatusPacking})
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = f.orders.AssignTracking(ctx, id, orderdomain.Tracking{Number: number, Courier: "dhl", URL: orderdomain.TrackingURL("dhl", number)})
	require.NoError(t, err)
	require.True(t, applied)
}

func (f *fixture) status(t *testing.T, id string) *orderdomain.Order {
	t.Helper()
	order, err := f.orders.GetByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func TestSyncAll_DeliveredCheckpointCompletesShippedOrder(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	eta := now.Add(24 * time.Hour)
	f.carrier.Set("JD1", &domain.Record{
		Number:           "JD1",
		Tag:              "Delivered",
		ExpectedDelivery: &eta,
		Checkpoints: []domain.Checkpoint{
			{Tag: "InTransit", At: now.Add(-2 * time.Hour)},
			{Tag: "Delivered", Message: "Left at door", Location: "Springfield", At: now.Add(-time.Hour)},
		},
	})

	report, err := f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	f.dispatch.Wait()

	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Recorded)
	assert.Zero(t, report.Failed)

	order := f.status(t, "o-1")
	assert.Equal(t, orderdomain.StatusDelivered, order.Status)
	assert.True(t, order.Paid, "delivered cash order is paid")
	require.NotNil(t, order.Tracking.LastCheckpoint)
	assert.Equal(t, "Left at door", order.Tracking.LastCheckpoint.Message)
	require.NotNil(t, order.Tracking.EstimatedDelivery)
	assert.True(t, order.Tracking.EstimatedDelivery.Equal(eta))
	assert.Equal(t, 1, f.sent.Count(notifydomain.KindOrderStatusChanged))

	report, err = f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Checked, "delivered orders are no longer trackable")
}

func TestSyncAll_UnmappedTagRecordsCheckpointOnly(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	f.carrier.Set("JD1", &domain.Record{Checkpoints: []domain.Checkpoint{
		{Tag: "InTransit", Location: "Hub", At: now.Add(-time.Hour)},
	}})

	report, err := f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	f.dispatch.Wait()

	assert.Equal(t, 1, report.Recorded)
	assert.Zero(t, report.Updated)
	order := f.status(t, "o-1")
	assert.Equal(t, orderdomain.StatusShipped, order.Status)
	require.NotNil(t, order.Tracking.LastCheckpoint)
	assert.Equal(t, "Hub", order.Tracking.LastCheckpoint.Location)
	assert.Zero(t, f.sent.Count(notifydomain.KindOrderStatusChanged))
}

func TestSyncAll_UndefinedEdgeIsNoop(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	f.carrier.Set("JD1", &domain.Record{Tag: "Exception", Checkpoints: []domain.Checkpoint{
		{Tag: "Exception", At: now.Add(-time.Hour)},
	}})

	_, err := f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusShipped, f.status(t, "o-1").Status)
}

func TestSyncAll_StaleCheckpointIgnored(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	f.carrier.Set("JD1", &domain.Record{Tag: "OutForDelivery", Checkpoints: []domain.Checkpoint{
		{Tag: "OutForDelivery", At: now.Add(-time.Hour)},
	}})
	_, err := f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, orderdomain.StatusOutForDelivery, f.status(t, "o-1").Status)

	// A lagging replica reports an older exception scan.
	f.carrier.Set("JD1", &domain.Record{Tag: "Exception", Checkpoints: []domain.Checkpoint{
		{Tag: "Exception", At: now.Add(-2 * time.Hour)},
	}})
	report, err := f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
	assert.Equal(t, orderdomain.StatusOutForDelivery, f.status(t, "o-1").Status)
}

func TestSyncAll_PersistsETAWithoutNewerCheckpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.shipped(t, "o-1", "JD1")
	f.shipped(t, "o-2", "JD2")
	scan := domain.Checkpoint{Tag: "InTransit", Location: "Hub", At: now.Add(-time.Hour)}
	first := now.Add(24 * time.Hour)
	f.carrier.Set("JD1", &domain.Record{ExpectedDelivery: &first, Checkpoints: []domain.Checkpoint{scan}})
	_, err := f.sync.SyncAll(ctx)
	require.NoError(t, err)

	later := now.Add(72 * time.Hour)
	f.carrier.Set("JD1", &domain.Record{ExpectedDelivery: &later, Checkpoints: []domain.Checkpoint{scan}})
	f.carrier.Set("JD2", &domain.Record{ExpectedDelivery: &later})

	result, err := f.sync.SyncOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, result.ETAUpdated)
	assert.False(t, result.Recorded, "same checkpoint is not recorded twice")

	_, err = f.sync.SyncAll(ctx)
	require.NoError(t, err)
	for _, id := range []string{"o-1", "o-2"} {
		order := f.status(t, id)
		assert.Equal(t, orderdomain.StatusShipped, order.Status)
		require.NotNil(t, order.Tracking.EstimatedDelivery, id)
		assert.True(t, order.Tracking.EstimatedDelivery.Equal(later), id)
	}
}

func TestSyncAll_FailingOrderDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	f.shipped(t, "o-2", "JD2")
	f.shipped(t, "o-3", "JD3")
	f.carrier.Fail("JD1", errors.New("carrier unavailable"))
	f.carrier.Set("JD3", &domain.Record{Tag: "OutForDelivery", Checkpoints: []domain.Checkpoint{
		{Tag: "OutForDelivery", At: now.Add(-time.Hour)},
	}})

	report, err := f.sync.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 2, report.Failed, "JD1 errors and JD2 is unknown to the carrier")
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, orderdomain.StatusOutForDelivery, f.status(t, "o-3").Status)
	assert.Equal(t, orderdomain.StatusShipped, f.status(t, "o-1").Status)
}

func TestSyncAll_CancelledContextStops(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.sync.SyncAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Checked)
	assert.Zero(t, f.carrier.Calls("JD1"))
}

func TestSyncOrder(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	f.carrier.Set("JD1", &domain.Record{Tag: "out-for-delivery"})

	result, err := f.sync.SyncOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.True(t, result.Changed())
	assert.True(t, result.Recorded)
	assert.Equal(t, orderdomain.StatusOutForDelivery, result.To)

	order := f.status(t, "o-1")
	require.NotNil(t, order.Tracking.LastCheckpoint)
	assert.True(t, order.Tracking.LastCheckpoint.At.Equal(now), "tag-only record is stamped with the sync time")

	_, err = f.sync.SyncOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, failure.ErrNotFound)
	_, err = f.sync.SyncOrder(context.Background(), "")
	assert.ErrorIs(t, err, failure.ErrValidation)
}

func TestSyncOrder_WithoutTrackingNumber(t *testing.T) {
	f := newFixture(t)
	order, err := orderdomain.NewOrder("o-1", "buyer-1", []inventorydomain.PricedLine{
		{ProductID: "tee", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
	}, orderdomain.Address{FullName: "Ada", Line1: "1 Main", City: "Town", PostalCode: "1", Country: "US"},
		orderdomain.PaymentCOD, decimal.Zero, now)
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(context.Background(), order))

	_, err = f.sync.SyncOrder(context.Background(), "o-1")
	assert.ErrorIs(t, err, failure.ErrConflict)
}

func TestLive(t *testing.T) {
	f := newFixture(t)
	f.shipped(t, "o-1", "JD1")
	f.carrier.Set("JD1", &domain.Record{Number: "JD1", Tag: "InTransit"})

	record, err := f.sync.Live(context.Background(), identity.Actor{ID: "buyer-1", Role: identity.RoleBuyer}, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "InTransit", record.Tag)

	_, err = f.sync.Live(context.Background(), identity.Actor{ID: "buyer-2", Role: identity.RoleBuyer}, "o-1")
	assert.ErrorIs(t, err, failure.ErrForbidden)
	_, err = f.sync.Live(context.Background(), identity.Actor{}, "o-1")
	assert.ErrorIs(t, err, failure.ErrAuthorization)

	f.carrier.Fail("JD1", errors.New("boom"))
	_, err = f.sync.Live(context.Background(), identity.Actor{ID: "admin", Role: identity.RoleAdmin}, "o-1")
	assert.ErrorIs(t, err, failure.ErrExternalService)
}
