package domain

import (
	"strings"
	"time"

	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
)

// Checkpoint is one scan event reported by a carrier.
type Checkpoint struct {
	Tag      string
	Message  string
	Location string
	At       time.Time
}

// Record is a carrier's tracking view of one shipment. Every field may be
// missing; carriers are inconsistent about what they report.
type Record struct {
	Number           string
	Courier          string
	Tag              string
	ExpectedDelivery *time.Time
	Checkpoints      []Checkpoint
}

// Latest returns the most recent checkpoint.
func (r *Record) Latest() (Checkpoint, bool) {
	if r == nil || len(r.Checkpoints) == 0 {
		return Checkpoint{}, false
	}
	latest := r.Checkpoints[0]
	for _, cp := range r.Checkpoints[1:] {
		if cp.At.After(latest.At) {
			latest = cp
		}
	}
	return latest, true
}

// CurrentTag is the record's overall tag, falling back to the latest checkpoint's.
func (r *Record) CurrentTag() string {
	if r == nil {
		return ""
	}
	if tag := strings.TrimSpace(r.Tag); tag != "" {
		return tag
	}
	if latest, ok := r.Latest(); ok {
		return latest.Tag
	}
	return ""
}

// tagEvents maps carrier status vocabulary to automaton events. Tags absent
// here (Pending, InfoReceived, InTransit, AvailableForPickup, Expired) never
// move an order.
var tagEvents = map[string]orderdomain.Event{
	"outfordelivery": orderdomain.EventOutForDelivery,
	"delivered":      orderdomain.EventDelivered,
	"exception":      orderdomain.EventDeliveryException,
	"attemptfail":    orderdomain.EventDeliveryException,
}

// EventForTag looks up the automaton event for a carrier tag. Matching ignores
// case, spaces, dashes and underscores.
func EventForTag(tag string) (orderdomain.Event, bool) {
	ev, ok := tagEvents[normalizeTag(tag)]
	return ev, ok
}

// Resolve returns the status an order in `from` should reach for tag.
// changed is false when the tag is unmapped or the edge is undefined.
func Resolve(from orderdomain.Status, tag string) (to orderdomain.Status, changed bool) {
	ev, ok := EventForTag(tag)
	if !ok {
		return from, false
	}
	next, ok := orderdomain.Next(from, ev)
	if !ok {
		return from, false
	}
	return next, true
}

func normalizeTag(tag string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(tag))
}
