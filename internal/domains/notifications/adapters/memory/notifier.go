package memory

import (
	"context"
	"sync"

	"github.com/Apurer/order-engine/internal/domains/notifications/domain"
	"github.com/Apurer/order-engine/internal/domains/notifications/ports"
)

var _ ports.Notifier = (*Notifier)(nil)

// Notifier records messages in memory. Err, when set, is returned from every Notify call.
type Notifier struct {
	mu       sync.Mutex
	messages []domain.Message
	Err      error
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(_ context.Context, msg domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.messages = append(n.messages, msg)
	return nil
}

// Messages returns a copy of everything delivered so far.
func (n *Notifier) Messages() []domain.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Message(nil), n.messages...)
}

// Count returns how many messages of the given kind were delivered.
func (n *Notifier) Count(kind domain.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m.Kind == kind {
			c++
		}
	}
	return c
}
