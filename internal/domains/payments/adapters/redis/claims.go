package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Apurer/order-engine/internal/domains/payments/ports"
)

var _ ports.ClaimStore = (*ClaimStore)(nil)

// releaseScript deletes the key only if this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ClaimStore keeps in-flight event claims in Redis so every API instance
// shares them. Claims expire on their own if the holder dies.
type ClaimStore struct {
	client redis.UniversalClient
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

func NewClaimStore(client redis.UniversalClient) *ClaimStore {
	return &ClaimStore{client: client, prefix: "payments:claim:", tokens: map[string]string{}}
}

func (s *ClaimStore) Claim(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.key(eventID), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim failed: %w", err)
	}
	if ok {
		s.mu.Lock()
		s.tokens[eventID] = token
		s.mu.Unlock()
	}
	return ok, nil
}

func (s *ClaimStore) Release(ctx context.Context, eventID string) error {
	s.mu.Lock()
	token, ok := s.tokens[eventID]
	delete(s.tokens, eventID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, s.client, []string{s.key(eventID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}

func (s *ClaimStore) key(eventID string) string {
	return s.prefix + eventID
}
