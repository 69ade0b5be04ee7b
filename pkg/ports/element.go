package ports

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// ElementProvider finds a slot element inside a container.
// Implementations retry until ctx is done; the engine bounds ctx with its import
// timeout and treats a deadline or a nil element as element_not_found.
type ElementProvider interface {
	GetElement(ctx context.Context, container domain.Element, selector string) (domain.Element, error)
}

// History is the navigation handle given to version 3 scripts.
type History interface {
	Push(path string)
	Replace(path string)
	Location() string
}
