package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Bus is an in-process ports.EventPublisher and ports.EventSubscriber.
// Slow subscribers lose events instead of blocking publishers.
type Bus struct {
	buffer int

	mu     sync.RWMutex
	topics map[string]map[chan domain.HostStatusEvent]struct{}
}

var (
	_ ports.EventPublisher  = (*Bus)(nil)
	_ ports.EventSubscriber = (*Bus)(nil)
)

// NewBus creates a bus whose subscriptions buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		buffer: buffer,
		topics: make(map[string]map[chan domain.HostStatusEvent]struct{}),
	}
}

// Publish delivers event to every current subscriber of topic.
func (b *Bus) Publish(ctx context.Context, topic string, event domain.HostStatusEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel closed when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan domain.HostStatusEvent, error) {
	ch := make(chan domain.HostStatusEvent, b.buffer)

	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[chan domain.HostStatusEvent]struct{})
	}
	b.topics[topic][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.topics[topic], ch)
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
