package script

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// Version 6 method sets. Only V6Renderer is required.
type (
	V6Renderer interface {
		Render(ctx context.Context, el domain.Element, state *domain.State) error
	}
	V6Hydrator interface {
		Hydrate(ctx context.Context, el domain.Element, state *domain.State) error
	}
	V6Unmounter interface {
		Unmount(ctx context.Context, el domain.Element, state *domain.State) error
	}
	V6StateChanger interface {
		OnStateChange(ctx context.Context, state *domain.State) error
	}
	V6StatusUpdater interface {
		OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state *domain.State) error
	}
)

// v6 passes the unified state through unchanged.
type v6 struct {
	render  V6Renderer
	hydrate V6Hydrator
	unmount V6Unmounter
	change  V6StateChanger
	status  V6StatusUpdater
}

func newV6(raw domain.Script) Adapted {
	r, ok := raw.(V6Renderer)
	if !ok {
		return newIncomplete(6)
	}
	s := &v6{render: r}
	s.hydrate, _ = raw.(V6Hydrator)
	s.unmount, _ = raw.(V6Unmounter)
	s.change, _ = raw.(V6StateChanger)
	s.status, _ = raw.(V6StatusUpdater)
	return s
}

func (s *v6) Hydrate(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.hydrate == nil {
		return s.render.Render(ctx, el, state)
	}
	return s.hydrate.Hydrate(ctx, el, state)
}

func (s *v6) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	return s.render.Render(ctx, el, state)
}

func (s *v6) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.unmount == nil {
		return nil
	}
	return s.unmount.Unmount(ctx, el, state)
}

func (s *v6) OnStateChange(ctx context.Context, state *domain.State) error {
	if s.change == nil {
		return nil
	}
	return s.change.OnStateChange(ctx, state)
}

func (s *v6) OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state *domain.State) error {
	if s.status == nil {
		return nil
	}
	return s.status.OnUpdateStatus(ctx, details, state)
}
