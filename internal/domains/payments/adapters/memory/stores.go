package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-engine/internal/domains/payments/domain"
	"github.com/Apurer/order-engine/internal/domains/payments/ports"
)

var (
	_ ports.MarkerStore = (*MarkerStore)(nil)
	_ ports.ClaimStore  = (*ClaimStore)(nil)
	_ ports.Loyalty     = (*Loyalty)(nil)
)

// MarkerStore keeps processed-event markers in memory.
type MarkerStore struct {
	mu      sync.RWMutex
	markers map[string]domain.ProcessedEvent
}

func NewMarkerStore() *MarkerStore {
	return &MarkerStore{markers: map[string]domain.ProcessedEvent{}}
}

func (s *MarkerStore) Seen(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.markers[eventID]
	return ok, nil
}

func (s *MarkerStore) Save(_ context.Context, marker domain.ProcessedEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[marker.EventID]; ok {
		return false, nil
	}
	s.markers[marker.EventID] = marker
	return true, nil
}

// Get returns the stored marker for assertions.
func (s *MarkerStore) Get(eventID string) (domain.ProcessedEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[eventID]
	return m, ok
}

// ClaimStore is a process-local TTL claim table. It is only correct for a
// single instance; multi-instance deployments use the Redis store.
type ClaimStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewClaimStore() *ClaimStore {
	return &ClaimStore{claims: map[string]time.Time{}, now: time.Now}
}

func (s *ClaimStore) WithClock(now func() time.Time) *ClaimStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *ClaimStore) Claim(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if expires, ok := s.claims[eventID]; ok && now.Before(expires) {
		return false, nil
	}
	s.claims[eventID] = now.Add(ttl)
	return true, nil
}

func (s *ClaimStore) Release(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, eventID)
	return nil
}

// Award is one recorded loyalty grant.
type Award struct {
	BuyerID string
	OrderID string
	Amount  decimal.Decimal
}

// Loyalty records awards in memory.
type Loyalty struct {
	mu     sync.Mutex
	awards []Award
	Err    error
}

func NewLoyalty() *Loyalty {
	return &Loyalty{}
}

func (l *Loyalty) Award(_ context.Context, buyerID, orderID string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.awards = append(l.awards, Award{BuyerID: buyerID, OrderID: orderID, Amount: amount})
	return nil
}

func (l *Loyalty) Awards() []Award {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Award(nil), l.awards...)
}
