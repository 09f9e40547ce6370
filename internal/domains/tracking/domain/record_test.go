package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		from    orderdomain.Status
		tag     string
		want    orderdomain.Status
		changed bool
	}{
		{orderdomain.StatusShipped, "OutForDelivery", orderdomain.StatusOutForDelivery, true},
		{orderdomain.StatusShipped, "out_for_delivery", orderdomain.StatusOutForDelivery, true},
		{orderdomain.StatusShipped, "Delivered", orderdomain.StatusDelivered, true},
		{orderdomain.StatusOutForDelivery, "DELIVERED", orderdomain.StatusDelivered, true},
		{orderdomain.StatusOutForDelivery, "Exception", orderdomain.StatusShipped, true},
		{orderdomain.StatusOutForDelivery, "AttemptFail", orderdomain.StatusShipped, true},
		{orderdomain.StatusShipped, "Exception", orderdomain.StatusShipped, false},
		{orderdomain.StatusShipped, "InTransit", orderdomain.StatusShipped, false},
		{orderdomain.StatusShipped, "SomethingNew", orderdomain.StatusShipped, false},
		{orderdomain.StatusPacking, "Delivered", orderdomain.StatusPacking, false},
		{orderdomain.StatusDelivered, "OutForDelivery", orderdomain.StatusDelivered, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+tc.tag, func(t *testing.T) {
			got, changed := Resolve(tc.from, tc.tag)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.changed, changed)
		})
	}
}

func TestRecord_LatestAndCurrentTag(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := &Record{Checkpoints: []Checkpoint{
		{Tag: "InTransit", At: base.Add(time.Hour)},
		{Tag: "OutForDelivery", At: base.Add(3 * time.Hour)},
		{Tag: "InfoReceived", At: base},
	}}
	latest, ok := rec.Latest()
	assert.True(t, ok)
	assert.Equal(t, "OutForDelivery", latest.Tag)
	assert.Equal(t, "OutForDelivery", rec.CurrentTag())

	rec.Tag = "Delivered"
	assert.Equal(t, "Delivered", rec.CurrentTag())

	var empty *Record
	_, ok = empty.Latest()
	assert.False(t, ok)
	assert.Empty(t, (&Record{}).CurrentTag())
}
