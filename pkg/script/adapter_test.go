package script_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type element struct{ content string }

func (e *element) Selector() string     { return "#test" }
func (e *element) SetContent(m string)  { e.content = m }
func (e *element) Content() string      { return e.content }

var routes = &domain.Manifest{
	Routes: []domain.Route{
		{Name: "APP_A", Path: "/app-a", Fragments: []domain.FragmentRef{{Name: "SCRIPT_A", Slot: "APP"}}},
		{Name: "APP_B", Paths: []string{"/app-b", "/app-b/next"}, Fragments: []domain.FragmentRef{{Name: "SCRIPT_B"}, {Name: "NAV"}}},
	},
}

var state = &domain.State{Resource: "/app-b", Route: "APP_B", PrevRoute: "APP_A", Event: domain.EventNavigate}

// v6Full implements every version 6 method.
type v6Full struct{ calls []string }

func (s *v6Full) Version() int { return 6 }
func (s *v6Full) Render(_ context.Context, _ domain.Element, st *domain.State) error {
	s.calls = append(s.calls, "render:"+st.Route)
	return nil
}
func (s *v6Full) Hydrate(_ context.Context, _ domain.Element, st *domain.State) error {
	s.calls = append(s.calls, "hydrate:"+st.Route)
	return nil
}
func (s *v6Full) Unmount(context.Context, domain.Element, *domain.State) error {
	s.calls = append(s.calls, "unmount")
	return nil
}
func (s *v6Full) OnStateChange(_ context.Context, st *domain.State) error {
	s.calls = append(s.calls, "change:"+st.Resource)
	return nil
}
func (s *v6Full) OnUpdateStatus(_ context.Context, d domain.StatusDetails, _ *domain.State) error {
	s.calls = append(s.calls, "status:"+string(d.Status))
	return nil
}

// v6Minimal only renders.
type v6Minimal struct{ renders int }

func (s *v6Minimal) Version() int { return 6 }
func (s *v6Minimal) Render(context.Context, domain.Element, *domain.State) error {
	s.renders++
	return nil
}

type v5Script struct{ seen []script.V5State }

func (s *v5Script) Version() int { return 5 }
func (s *v5Script) Render(_ context.Context, _ domain.Element, st script.V5State) error {
	s.seen = append(s.seen, st)
	return nil
}
func (s *v5Script) OnStateChange(_ context.Context, st script.V5State) error {
	s.seen = append(s.seen, st)
	return nil
}

type v4Script struct {
	events   []string
	apps     []*script.App
	statuses []domain.Status
}

func (s *v4Script) Version() int { return 4 }
func (s *v4Script) Mount(_ context.Context, _ domain.Element, event string, app *script.App) error {
	s.events = append(s.events, "mount:"+event)
	s.apps = append(s.apps, app)
	return nil
}
func (s *v4Script) Hydrate(_ context.Context, _ domain.Element, app *script.App) error {
	s.events = append(s.events, "hydrate")
	s.apps = append(s.apps, app)
	return nil
}
func (s *v4Script) Unmount(_ context.Context, _ domain.Element, event string, _ *script.App) error {
	s.events = append(s.events, "unmount:"+event)
	return nil
}
func (s *v4Script) OnUpdateStatus(_ context.Context, status domain.Status) error {
	s.statuses = append(s.statuses, status)
	return nil
}

type history struct{ pushed []string }

func (h *history) Push(p string)     { h.pushed = append(h.pushed, p) }
func (h *history) Replace(p string)  { h.pushed = append(h.pushed, "replace:"+p) }
func (h *history) Location() string { return "" }

type v3Script struct{ got ports.History }

func (s *v3Script) Version() int { return 3 }
func (s *v3Script) Mount(_ context.Context, _ domain.Element, h ports.History, _ *script.App) error {
	s.got = h
	h.Push("/legacy")
	return nil
}

type versionless struct{ v int }

func (s versionless) Version() int { return s.v }

func TestAdapt_V6PassesStateThrough(t *testing.T) {
	ctx := context.Background()
	raw := &v6Full{}
	a := script.Adapt(raw, script.Env{})
	el := &element{}

	require.NoError(t, a.Hydrate(ctx, el, state))
	require.NoError(t, a.Render(ctx, el, state))
	require.NoError(t, a.OnStateChange(ctx, state))
	require.NoError(t, a.OnUpdateStatus(ctx, domain.Loading(), state))
	require.NoError(t, a.Unmount(ctx, el, state))

	assert.Equal(t, []string{"hydrate:APP_B", "render:APP_B", "change:/app-b", "status:loading", "unmount"}, raw.calls)
}

func TestAdapt_MissingOptionalMethods(t *testing.T) {
	ctx := context.Background()
	raw := &v6Minimal{}
	a := script.Adapt(raw, script.Env{})

	require.NoError(t, a.Hydrate(ctx, &element{}, state), "hydrate falls back to render")
	assert.NoError(t, a.Unmount(ctx, &element{}, state))
	assert.NoError(t, a.OnStateChange(ctx, state))
	assert.NoError(t, a.OnUpdateStatus(ctx, domain.Ready(), state))
	assert.Equal(t, 1, raw.renders)
}

func TestAdapt_V5Projection(t *testing.T) {
	ctx := context.Background()
	raw := &v5Script{}
	a := script.Adapt(raw, script.Env{Routes: routes})

	require.NoError(t, a.Hydrate(ctx, &element{}, state))
	require.NoError(t, a.OnStateChange(ctx, state))
	require.Len(t, raw.seen, 2)

	got := raw.seen[0]
	assert.Equal(t, raw.seen[0], raw.seen[1], "projection is identical for every call")
	require.NotNil(t, got.App)
	require.NotNil(t, got.PrevApp)
	assert.Equal(t, "APP_B", got.App.Name)
	assert.Equal(t, []string{"/app-b", "/app-b/next"}, got.App.Paths)
	assert.Equal(t, []string{"SCRIPT_B", "NAV"}, got.App.Fragments)
	assert.Empty(t, got.App.Fragment)
	assert.Equal(t, "/app-a", got.PrevApp.Path)
	assert.Equal(t, "SCRIPT_A", got.PrevApp.Fragment)
	assert.Equal(t, "/app-b", got.Resource)
	assert.Equal(t, domain.EventNavigate, got.Event)
}

func TestAdapt_V4PositionalArguments(t *testing.T) {
	ctx := context.Background()
	raw := &v4Script{}
	a := script.Adapt(raw, script.Env{Routes: routes})

	require.NoError(t, a.Hydrate(ctx, &element{}, state))
	require.NoError(t, a.Render(ctx, &element{}, state))
	require.NoError(t, a.Unmount(ctx, &element{}, state))
	require.NoError(t, a.OnUpdateStatus(ctx, domain.StatusDetails{Status: domain.StatusError, Message: "boom"}, state))
	require.NoError(t, a.OnStateChange(ctx, state), "missing onStateChange is a no-op")

	assert.Equal(t, []string{"hydrate", "mount:navigate", "unmount:navigate"}, raw.events)
	assert.Equal(t, "APP_B", raw.apps[0].Name)
	assert.Equal(t, []domain.Status{domain.StatusError}, raw.statuses)
}

func TestAdapt_V3ReceivesHistory(t *testing.T) {
	ctx := context.Background()
	h := &history{}
	raw := &v3Script{}
	a := script.Adapt(raw, script.Env{Routes: routes, History: h})

	require.NoError(t, a.Hydrate(ctx, &element{}, state))
	assert.Same(t, h, raw.got)
	assert.Equal(t, []string{"/legacy"}, h.pushed)
	assert.NoError(t, a.OnUpdateStatus(ctx, domain.Loading(), state), "status calls are absorbed")
}

func TestAdapt_InvalidVersion(t *testing.T) {
	ctx := context.Background()
	for _, v := range []int{0, 2, 7} {
		a := script.Adapt(versionless{v: v}, script.Env{})
		assert.True(t, script.IsInvalid(a))

		calls := []error{
			a.Hydrate(ctx, &element{}, state),
			a.Render(ctx, &element{}, state),
			a.Unmount(ctx, &element{}, state),
			a.OnStateChange(ctx, state),
			a.OnUpdateStatus(ctx, domain.Ready(), state),
		}
		for _, err := range calls {
			require.Error(t, err)
			assert.Equal(t, domain.CodeInvalidScript, domain.CodeOf(err))
			assert.True(t, errors.Is(err, domain.ErrInvalidScriptVersion))
		}
	}
}

func TestAdapt_DeclaredVersionWithoutRender(t *testing.T) {
	a := script.Adapt(versionless{v: 6}, script.Env{})
	err := a.Render(context.Background(), &element{}, state)
	assert.Equal(t, domain.CodeInvalidScript, domain.CodeOf(err))
	assert.False(t, errors.Is(err, domain.ErrInvalidScriptVersion))
}
