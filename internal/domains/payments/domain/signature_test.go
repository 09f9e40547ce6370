package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	secret := []byte("whsec")
	at := time.Unix(1_700_000_000, 0)
	body := []byte(`{"id":"evt_1"}`)
	header := SignatureFor(secret, at, body)

	require.NoError(t, Verify(secret, header, body, at.Add(time.Minute), DefaultTolerance))
	assert.ErrorIs(t, Verify(secret, "", body, at, DefaultTolerance), ErrMissingSignature)
	assert.ErrorIs(t, Verify(secret, "t=abc,v1=00", body, at, DefaultTolerance), ErrMalformedHeader)
	assert.ErrorIs(t, Verify(secret, "v1=00", body, at, DefaultTolerance), ErrMalformedHeader)
	assert.ErrorIs(t, Verify([]byte("rotated"), header, body, at, DefaultTolerance), ErrSignatureMismatch)
	assert.ErrorIs(t, Verify(secret, header, []byte(`{"id":"evt_2"}`), at, DefaultTolerance), ErrSignatureMismatch)
	assert.ErrorIs(t, Verify(secret, header, body, at.Add(10*time.Minute), DefaultTolerance), ErrStaleTimestamp)
}

func TestVerify_AcceptsAnyListedSignature(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	body := []byte(`{}`)
	header := "t=1700000000,v1=deadbeef,v1=" + Sign([]byte("new"), at.Unix(), body)
	assert.NoError(t, Verify([]byte("new"), header, body, at, DefaultTolerance))
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"id":"evt_1","type":"checkout.session.completed","created":1700000000,
		"data":{"object":{"id":"cs_1","payment_status":"paid","metadata":{"orderId":"o-1","buyerId":"b-1"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "o-1", ev.OrderID)
	assert.Equal(t, "b-1", ev.BuyerID)
	assert.Equal(t, "cs_1", ev.SessionID)
	assert.True(t, ev.ConfirmsPayment())

	deferred, err := ParseEvent([]byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"payment_status":"unpaid","metadata":{"orderId":"o-1"}}}}`))
	require.NoError(t, err)
	assert.False(t, deferred.ConfirmsPayment())

	_, err = ParseEvent([]byte(`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{}}}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	_, err = ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
