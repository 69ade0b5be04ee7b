package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Bus fans host status events out through Redis pub/sub, so every replica
// serving a session can stream its status.
type Bus struct {
	client *backend.Client
	prefix string
	logger *slog.Logger
}

var (
	_ ports.EventPublisher  = (*Bus)(nil)
	_ ports.EventSubscriber = (*Bus)(nil)
)

// NewBus creates a bus whose channels are named prefix+topic.
func NewBus(client *backend.Client, prefix string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{client: client, prefix: prefix, logger: logger}
}

// Publish sends the event as JSON.
func (b *Bus) Publish(ctx context.Context, topic string, event domain.HostStatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+topic, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe streams the events of topic until ctx is done.
// The subscription is confirmed before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan domain.HostStatusEvent, error) {
	sub := b.client.Subscribe(ctx, b.prefix+topic)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan domain.HostStatusEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.HostStatusEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed status event", "topic", topic, "err", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
