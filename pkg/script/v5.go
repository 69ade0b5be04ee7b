package script

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// App is the route projection older scripts receive.
type App struct {
	Name      string   `json:"name"`
	Path      string   `json:"path,omitempty"`
	Paths     []string `json:"paths,omitempty"`
	Fragment  string   `json:"fragment,omitempty"`
	Fragments []string `json:"fragments,omitempty"`
}

// V5State is the state shape of version 5 scripts.
type V5State struct {
	App      *App   `json:"app"`
	PrevApp  *App   `json:"prevApp"`
	Resource string `json:"resource"`
	Event    string `json:"event"`
}

// ProjectApp builds the App of a route name. It returns nil for unknown routes.
func ProjectApp(routes RouteLookup, name string) *App {
	if routes == nil || name == "" {
		return nil
	}
	r, ok := routes.Route(name)
	if !ok {
		return nil
	}
	app := &App{
		Name:      r.Name,
		Path:      r.Path,
		Paths:     r.AllPaths(),
		Fragments: r.FragmentNames(),
	}
	if len(app.Fragments) == 1 {
		app.Fragment = app.Fragments[0]
	}
	return app
}

// ProjectV5 derives the version 5 state from the unified one.
// Every version 5 call goes through it so the projection is identical everywhere.
func ProjectV5(routes RouteLookup, state *domain.State) V5State {
	if state == nil {
		return V5State{}
	}
	return V5State{
		App:      ProjectApp(routes, state.Route),
		PrevApp:  ProjectApp(routes, state.PrevRoute),
		Resource: state.Resource,
		Event:    state.Event,
	}
}

// Version 5 method sets. Only V5Renderer is required.
type (
	V5Renderer interface {
		Render(ctx context.Context, el domain.Element, state V5State) error
	}
	V5Hydrator interface {
		Hydrate(ctx context.Context, el domain.Element, state V5State) error
	}
	V5Unmounter interface {
		Unmount(ctx context.Context, el domain.Element, state V5State) error
	}
	V5StateChanger interface {
		OnStateChange(ctx context.Context, state V5State) error
	}
	V5StatusUpdater interface {
		OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state V5State) error
	}
)

type v5 struct {
	routes  RouteLookup
	render  V5Renderer
	hydrate V5Hydrator
	unmount V5Unmounter
	change  V5StateChanger
	status  V5StatusUpdater
}

func newV5(raw domain.Script, env Env) Adapted {
	r, ok := raw.(V5Renderer)
	if !ok {
		return newIncomplete(5)
	}
	s := &v5{routes: env.Routes, render: r}
	s.hydrate, _ = raw.(V5Hydrator)
	s.unmount, _ = raw.(V5Unmounter)
	s.change, _ = raw.(V5StateChanger)
	s.status, _ = raw.(V5StatusUpdater)
	return s
}

func (s *v5) Hydrate(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.hydrate == nil {
		return s.render.Render(ctx, el, ProjectV5(s.routes, state))
	}
	return s.hydrate.Hydrate(ctx, el, ProjectV5(s.routes, state))
}

func (s *v5) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	return s.render.Render(ctx, el, ProjectV5(s.routes, state))
}

func (s *v5) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.unmount == nil {
		return nil
	}
	return s.unmount.Unmount(ctx, el, ProjectV5(s.routes, state))
}

func (s *v5) OnStateChange(ctx context.Context, state *domain.State) error {
	if s.change == nil {
		return nil
	}
	return s.change.OnStateChange(ctx, ProjectV5(s.routes, state))
}

func (s *v5) OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state *domain.State) error {
	if s.status == nil {
		return nil
	}
	return s.status.OnUpdateStatus(ctx, details, ProjectV5(s.routes, state))
}
