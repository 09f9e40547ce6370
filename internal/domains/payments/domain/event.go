package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// EventCheckoutCompleted is the only event type that confirms payment.
const EventCheckoutCompleted = "checkout.session.completed"

// PaymentStatusPaid is the session status signalling captured funds.
const PaymentStatusPaid = "paid"

var ErrMalformedEvent = errors.New("malformed payment event")

// Event is the subset of a provider callback the gateway acts on.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	PaymentStatus string
	OrderID       string
	BuyerID       string
	Created       time.Time
}

type wireEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID            string            `json:"id"`
			PaymentStatus string            `json:"payment_status"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return Event{}, errors.Join(ErrMalformedEvent, err)
	}
	if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.Type) == "" {
		return Event{}, ErrMalformedEvent
	}
	ev := Event{
		ID:            w.ID,
		Type:          w.Type,
		SessionID:     w.Data.Object.ID,
		PaymentStatus: w.Data.Object.PaymentStatus,
		OrderID:       w.Data.Object.Metadata["orderId"],
		BuyerID:       w.Data.Object.Metadata["buyerId"],
	}
	if w.Created > 0 {
		ev.Created = time.Unix(w.Created, 0).UTC()
	}
	if ev.Type == EventCheckoutCompleted && strings.TrimSpace(ev.OrderID) == "" {
		return Event{}, errors.Join(ErrMalformedEvent, errors.New("metadata.orderId missing"))
	}
	return ev, nil
}

// ConfirmsPayment reports whether the event should mark an order paid.
// Sessions completed with a deferred payment method carry another status.
func (e Event) ConfirmsPayment() bool {
	return e.Type == EventCheckoutCompleted && (e.PaymentStatus == "" || e.PaymentStatus == PaymentStatusPaid)
}

// SessionEventID is the marker key used when payment is verified by polling
// the provider instead of a callback.
func SessionEventID(sessionID string) string {
	return "session:" + sessionID
}
