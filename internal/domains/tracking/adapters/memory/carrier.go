// Package memory provides a scripted carrier for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

// Carrier serves records keyed by tracking number. Failures queued with Fail
// are returned before the record, one per call.
type Carrier struct {
	mu       sync.Mutex
	records  map[string]*domain.Record
	failures map[string][]error
	calls    map[string]int
}

func NewCarrier() *Carrier {
	return &Carrier{
		records:  make(map[string]*domain.Record),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

func (c *Carrier) Set(number string, record *domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[number] = record
}

func (c *Carrier) Fail(number string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[number] = append(c.failures[number], errs...)
}

func (c *Carrier) Calls(number string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[number]
}

func (c *Carrier) Fetch(_ context.Context, number, _ string) (*domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[number]++
	if queued := c.failures[number]; len(queued) > 0 {
		c.failures[number] = queued[1:]
		return nil, queued[0]
	}
	record, ok := c.records[number]
	if !ok {
		return nil, ports.ErrUnknownShipment
	}
	copied := *record
	copied.Checkpoints = append([]domain.Checkpoint(nil), record.Checkpoints...)
	return &copied, nil
}

var _ ports.Carrier = (*Carrier)(nil)
