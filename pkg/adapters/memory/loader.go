package memory

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Loader implements ports.ManifestLoader over a manifest built in code.
type Loader struct {
	manifest *domain.Manifest
}

var _ ports.ManifestLoader = (*Loader)(nil)

// NewLoader wraps manifest.
func NewLoader(manifest *domain.Manifest) *Loader {
	return &Loader{manifest: manifest}
}

// Load validates and returns the manifest.
func (l *Loader) Load(ctx context.Context) (*domain.Manifest, error) {
	if err := l.manifest.Validate(); err != nil {
		return nil, err
	}
	return l.manifest, nil
}
