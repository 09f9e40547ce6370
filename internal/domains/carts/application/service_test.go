package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-engine/internal/domains/carts/adapters/memory"
	"github.com/Apurer/order-engine/internal/domains/carts/domain"
	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	notifymemory "github.com/Apurer/order-engine/internal/domains/notifications/adapters/memory"
	notifyapp "github.com/Apurer/order-engine/internal/domains/notifications/application"
	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

var buyer = identity.Actor{ID: "buyer-1", Role: identity.RoleBuyer}

func line(qty int) inventorydomain.Line {
	return inventorydomain.Line{ProductID: "tee", Name: "Tee", Quantity: qty, Price: decimal.NewNullDecimal(decimal.NewFromInt(25))}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestPutAndGet(t *testing.T) {
	svc := NewService(memory.NewRepository())
	ctx := context.Background()

	empty, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	_, err = svc.Put(ctx, buyer, []inventorydomain.Line{line(0)})
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = svc.Put(ctx, identity.Actor{}, []inventorydomain.Line{line(1)})
	require.ErrorIs(t, err, failure.ErrAuthorization)

	_, err = svc.Put(ctx, buyer, []inventorydomain.Line{line(2)})
	require.NoError(t, err)
	cart, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	_, err = svc.Put(ctx, buyer, nil)
	require.NoError(t, err)
	cart, err = svc.Get(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestSweepAbandoned_FlagsIdleCartsOnce(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := memory.NewRepository()
	sent := notifymemory.NewNotifier()
	dispatch := notifyapp.NewDispatcher(sent)
	svc := NewService(repo, WithClock(c.now), WithNotifier(dispatch))
	ctx := context.Background()

	_, err := svc.Put(ctx, buyer, []inventorydomain.Line{line(1)})
	require.NoError(t, err)
	c.t = c.t.Add(3 * time.Hour)
	_, err = svc.Put(ctx, identity.Actor{ID: "buyer-2"}, []inventorydomain.Line{line(1)})
	require.NoError(t, err)

	report, err := svc.SweepAbandoned(ctx, c.t.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Flagged)

	again, err := svc.SweepAbandoned(ctx, c.t.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again.Checked, "an open record suppresses repeat reminders")

	dispatch.Wait()
	assert.Equal(t, 1, sent.Count(notifydomain.KindCartAbandoned))

	require.NoError(t, svc.MarkRecovered(ctx, "buyer-1", "order-9"))
	admin := identity.Actor{ID: "ops", Role: identity.RoleAdmin}
	recovered, err := svc.ListAbandoned(ctx, admin, domain.AbandonedRecovered)
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	assert.Equal(t, "order-9", recovered[0].OrderID)
	require.NotNil(t, recovered[0].RecoveredAt)

	_, err = svc.ListAbandoned(ctx, buyer, "")
	assert.ErrorIs(t, err, failure.ErrForbidden)
}

func TestMarkRecovered_WithoutOpenRecordIsNoop(t *testing.T) {
	svc := NewService(memory.NewRepository())
	assert.NoError(t, svc.MarkRecovered(context.Background(), "buyer-1", "order-1"))
}
