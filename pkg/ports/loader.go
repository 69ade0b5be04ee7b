package ports

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// ManifestLoader loads the configuration of an engine.
// This allows the storage layer (file, directory repository, memory) to be decoupled.
type ManifestLoader interface {
	Load(ctx context.Context) (*domain.Manifest, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload functionality.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed document.
	Watch(ctx context.Context) (<-chan string, error)
}
