package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-engine/internal/domains/tracking/adapters/memory"
	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

type recorder struct{ errs []error }

func (r *recorder) CarrierFetch(err error) { r.errs = append(r.errs, err) }

func fast(inner ports.Carrier, opts ...Option) *Carrier {
	return New(inner, append([]Option{WithIntervals(time.Millisecond, 2*time.Millisecond)}, opts...)...)
}

func TestCarrier_RetriesTransientFailures(t *testing.T) {
	inner := memory.NewCarrier()
	inner.Set("JD1", &domain.Record{Tag: "InTransit"})
	inner.Fail("JD1", errors.New("502"), errors.New("timeout"))
	rec := &recorder{}

	record, err := fast(inner, WithMaxAttempts(3), WithRecorder(rec)).Fetch(context.Background(), "JD1", "dhl")
	require.NoError(t, err)
	assert.Equal(t, "InTransit", record.Tag)
	assert.Equal(t, 3, inner.Calls("JD1"))
	require.Len(t, rec.errs, 1)
	assert.NoError(t, rec.errs[0])
}

func TestCarrier_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := memory.NewCarrier()
	inner.Set("JD1", &domain.Record{Tag: "InTransit"})
	inner.Fail("JD1", errors.New("1"), errors.New("2"), errors.New("3"), errors.New("4"))

	_, err := fast(inner, WithMaxAttempts(3)).Fetch(context.Background(), "JD1", "dhl")
	require.EqualError(t, err, "3")
	assert.Equal(t, 3, inner.Calls("JD1"))
}

func TestCarrier_UnknownShipmentIsNotRetried(t *testing.T) {
	inner := memory.NewCarrier()

	_, err := fast(inner, WithMaxAttempts(5)).Fetch(context.Background(), "nope", "dhl")
	require.ErrorIs(t, err, ports.ErrUnknownShipment)
	assert.Equal(t, 1, inner.Calls("nope"))
}

func TestCarrier_StopsOnCancelledContext(t *testing.T) {
	inner := memory.NewCarrier()
	inner.Fail("JD1", errors.New("1"), errors.New("2"), errors.New("3"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fast(inner, WithMaxAttempts(3)).Fetch(ctx, "JD1", "dhl")
	require.Error(t, err)
	assert.Equal(t, 1, inner.Calls("JD1"))
}
