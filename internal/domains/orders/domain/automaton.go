package domain

import "sort"

// Event is an input to the status automaton.
type Event string

const (
	EventPaymentConfirmed  Event = "payment_confirmed"
	EventCancelRequested   Event = "cancel_requested"
	EventTrackingAssigned  Event = "tracking_assigned"
	EventOutForDelivery    Event = "carrier_out_for_delivery"
	EventDelivered         Event = "carrier_delivered"
	EventDeliveryException Event = "carrier_exception"
)

// transitions is the complete edge set. A (status, event) pair missing here is a no-op.
var transitions = map[Status]map[Event]Status{
	StatusPlaced: {
		EventPaymentConfirmed: StatusPacking,
		EventCancelRequested:  StatusCancelled,
	},
	StatusPacking: {
		EventTrackingAssigned: StatusShipped,
	},
	StatusShipped: {
		EventOutForDelivery: StatusOutForDelivery,
		EventDelivered:      StatusDelivered,
	},
	StatusOutForDelivery: {
		EventDelivered:         StatusDelivered,
		EventDeliveryException: StatusShipped,
	},
}

// Next returns the status reached from `from` on `ev`. ok is false when the edge is undefined.
func Next(from Status, ev Event) (Status, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// EventFor finds the event whose edge leads from `from` to `to`.
func EventFor(from, to Status) (Event, bool) {
	for ev, target := range transitions[from] {
		if target == to {
			return ev, true
		}
	}
	return "", false
}

// Transition is one edge of the automaton.
type Transition struct {
	From  Status
	Event Event
	To    Status
}

// Transitions lists every defined edge in a stable order.
func Transitions() []Transition {
	var out []Transition
	for from, edges := range transitions {
		for ev, to := range edges {
			out = append(out, Transition{From: from, Event: ev, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Event < out[j].Event
	})
	return out
}
