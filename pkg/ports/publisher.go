package ports

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// EventPublisher receives page-level status events.
// Publishing is best-effort: the engine logs failures and never escalates them.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event domain.HostStatusEvent) error
}

// EventSubscriber streams the events of a topic until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan domain.HostStatusEvent, error)
}
