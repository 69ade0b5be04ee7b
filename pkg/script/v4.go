package script

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// Version 4 method sets use positional arguments. Only V4Mounter is required.
type (
	V4Mounter interface {
		Mount(ctx context.Context, el domain.Element, event string, app *App) error
	}
	V4Hydrator interface {
		Hydrate(ctx context.Context, el domain.Element, app *App) error
	}
	V4Unmounter interface {
		Unmount(ctx context.Context, el domain.Element, event string, app *App) error
	}
	V4StateChanger interface {
		OnStateChange(ctx context.Context, app *App) error
	}
	// V4StatusUpdater receives only the status string.
	V4StatusUpdater interface {
		OnUpdateStatus(ctx context.Context, status domain.Status) error
	}
)

type v4 struct {
	routes  RouteLookup
	mount   V4Mounter
	hydrate V4Hydrator
	unmount V4Unmounter
	change  V4StateChanger
	status  V4StatusUpdater
}

func newV4(raw domain.Script, env Env) Adapted {
	m, ok := raw.(V4Mounter)
	if !ok {
		return newIncomplete(4)
	}
	s := &v4{routes: env.Routes, mount: m}
	s.hydrate, _ = raw.(V4Hydrator)
	s.unmount, _ = raw.(V4Unmounter)
	s.change, _ = raw.(V4StateChanger)
	s.status, _ = raw.(V4StatusUpdater)
	return s
}

func (s *v4) app(state *domain.State) *App {
	if state == nil {
		return nil
	}
	return ProjectApp(s.routes, state.Route)
}

func eventOf(state *domain.State) string {
	if state == nil {
		return ""
	}
	return state.Event
}

func (s *v4) Hydrate(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.hydrate == nil {
		return s.mount.Mount(ctx, el, eventOf(state), s.app(state))
	}
	return s.hydrate.Hydrate(ctx, el, s.app(state))
}

func (s *v4) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	return s.mount.Mount(ctx, el, eventOf(state), s.app(state))
}

func (s *v4) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.unmount == nil {
		return nil
	}
	return s.unmount.Unmount(ctx, el, eventOf(state), s.app(state))
}

func (s *v4) OnStateChange(ctx context.Context, state *domain.State) error {
	if s.change == nil {
		return nil
	}
	return s.change.OnStateChange(ctx, s.app(state))
}

func (s *v4) OnUpdateStatus(ctx context.Context, details domain.StatusDetails, _ *domain.State) error {
	if s.status == nil {
		return nil
	}
	return s.status.OnUpdateStatus(ctx, details.Status)
}
