package script

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Version 3 (legacy) method sets receive the history handle. Only V3Mounter is required.
// There is no status concept: OnUpdateStatus calls are absorbed.
type (
	V3Mounter interface {
		Mount(ctx context.Context, el domain.Element, history ports.History, app *App) error
	}
	V3Hydrator interface {
		Hydrate(ctx context.Context, el domain.Element, history ports.History, app *App) error
	}
	V3Unmounter interface {
		Unmount(ctx context.Context, el domain.Element, history ports.History, app *App) error
	}
	V3StateChanger interface {
		OnStateChange(ctx context.Context, history ports.History, app *App) error
	}
)

type v3 struct {
	routes  RouteLookup
	history ports.History
	mount   V3Mounter
	hydrate V3Hydrator
	unmount V3Unmounter
	change  V3StateChanger
}

func newV3(raw domain.Script, env Env) Adapted {
	m, ok := raw.(V3Mounter)
	if !ok {
		return newIncomplete(3)
	}
	h := env.History
	if h == nil {
		h = nopHistory{}
	}
	s := &v3{routes: env.Routes, history: h, mount: m}
	s.hydrate, _ = raw.(V3Hydrator)
	s.unmount, _ = raw.(V3Unmounter)
	s.change, _ = raw.(V3StateChanger)
	return s
}

func (s *v3) app(state *domain.State) *App {
	if state == nil {
		return nil
	}
	return ProjectApp(s.routes, state.Route)
}

func (s *v3) Hydrate(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.hydrate == nil {
		return s.mount.Mount(ctx, el, s.history, s.app(state))
	}
	return s.hydrate.Hydrate(ctx, el, s.history, s.app(state))
}

func (s *v3) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	return s.mount.Mount(ctx, el, s.history, s.app(state))
}

func (s *v3) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.unmount == nil {
		return nil
	}
	return s.unmount.Unmount(ctx, el, s.history, s.app(state))
}

func (s *v3) OnStateChange(ctx context.Context, state *domain.State) error {
	if s.change == nil {
		return nil
	}
	return s.change.OnStateChange(ctx, s.history, s.app(state))
}

func (s *v3) OnUpdateStatus(context.Context, domain.StatusDetails, *domain.State) error {
	return nil
}

type nopHistory struct{}

func (nopHistory) Push(string)      {}
func (nopHistory) Replace(string)   {}
func (nopHistory) Location() string { return "" }
