package domain

import "time"

type Outcome string

const (
	OutcomeConfirmed      Outcome = "confirmed"
	OutcomeAlreadyPaid    Outcome = "already_paid"
	OutcomeReconciliation Outcome = "reconciliation"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomePending        Outcome = "pending"
)

// ProcessedEvent is the idempotency marker persisted once an event has been handled.
type ProcessedEvent struct {
	EventID     string
	OrderID     string
	Outcome     Outcome
	ProcessedAt time.Time
}

// Result describes what the gateway did with one confirmation attempt.
type Result struct {
	EventID string
	OrderID string
	Outcome Outcome
}
