package runtime

import (
	"context"
	"testing"

	"github.com/aretw0/tessera/internal/testutils"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The sequence is a hydrating start on /app-a, then /app-b, /app-b/next,
// /app-b, /app-a and a final UnmountAll; B is rendered once and updated twice.
func TestOrchestrator_RouteSequenceCallCounts(t *testing.T) {
	a := testutils.NewRecordingScript("A")
	b := testutils.NewRecordingScript("B")
	o, doc := newTestOrchestrator(t, appManifest(a, b))
	ctx := context.Background()

	mounted, err := o.Apply(ctx, domain.Change{Resource: "/app-a", Event: domain.EventInit}, initialMode)
	require.NoError(t, err)
	assert.True(t, mounted)
	assert.Equal(t, "A", doc.Find("#APP").Content())

	assert.True(t, navigate(t, o, "/app-b"))
	assert.Empty(t, doc.Find("#APP").Content())
	assert.Equal(t, "B", doc.Find("#OTHER").Content())

	assert.True(t, navigate(t, o, "/app-b/next"))
	assert.True(t, navigate(t, o, "/app-b"))
	assert.True(t, navigate(t, o, "/app-a"))
	require.NoError(t, o.UnmountAll(ctx))

	ca, cb := a.Calls(), b.Calls()
	assert.Equal(t, 1, ca.Loads)
	assert.Equal(t, 1, ca.Hydrate)
	assert.Equal(t, 1, ca.Render)
	assert.Equal(t, 2, ca.Unmount)

	assert.Equal(t, 1, cb.Loads)
	assert.Equal(t, 0, cb.Hydrate)
	assert.Equal(t, 1, cb.Render)
	assert.Equal(t, 2, cb.OnStateChange)
	assert.Equal(t, 1, cb.Unmount)
	assert.Equal(t, []string{"/app-b", "/app-b/next", "/app-b", "/app-a"}, cb.States)

	assert.Nil(t, o.Context().State())
	assert.Empty(t, o.Snapshot())
}

func TestOrchestrator_StateCarriesPreviousRoute(t *testing.T) {
	a := testutils.NewRecordingScript("A")
	b := testutils.NewRecordingScript("B")
	o, _ := newTestOrchestrator(t, appManifest(a, b))

	_, err := o.Apply(context.Background(), domain.Change{Resource: "/app-a"}, initialMode)
	require.NoError(t, err)
	navigate(t, o, "/app-b")

	st := o.Context().State()
	assert.Equal(t, "APP_B", st.Route)
	assert.Equal(t, "APP_A", st.PrevRoute)
	assert.Equal(t, domain.EventNavigate, st.Event)
}

func TestOrchestrator_FragmentWithoutScriptIsExternal(t *testing.T) {
	a := testutils.NewRecordingScript("A")
	b := testutils.NewRecordingScript("B")
	m := appManifest(a, b)
	m.Fragments = append(m.Fragments, domain.Fragment{Name: "LEGACY", Slots: []string{"OTHER"}})
	m.Routes = append(m.Routes, domain.Route{Name: "LEGACY", Path: "/legacy", Fragments: []domain.FragmentRef{{Name: "LEGACY"}}})
	o, doc := newTestOrchestrator(t, m)

	_, err := o.Apply(context.Background(), domain.Change{Resource: "/app-a"}, initialMode)
	require.NoError(t, err)

	assert.False(t, navigate(t, o, "/legacy"))
	assert.Equal(t, "APP_A", o.Context().State().Route)
	assert.Equal(t, "A", doc.Find("#APP").Content())
	require.Len(t, o.Snapshot(), 1)
	assert.Equal(t, 0, a.Calls().Unmount)
}

func TestOrchestrator_UnknownResource(t *testing.T) {
	a := testutils.NewRecordingScript("A")
	b := testutils.NewRecordingScript("B")
	o, _ := newTestOrchestrator(t, appManifest(a, b))

	assert.False(t, navigate(t, o, "/nowhere"))
	assert.Nil(t, o.Context().State())
	assert.Equal(t, 0, a.Calls().Loads)
}

func TestOrchestrator_FailureIsIsolated(t *testing.T) {
	good := testutils.NewRecordingScript("good")
	bad := testutils.NewRecordingScript("bad")
	bad.Fail = "render"

	m := &domain.Manifest{
		Slots: []domain.Slot{{Name: "nav"}, {Name: "main"}},
		Fragments: []domain.Fragment{
			{Name: "good", Slots: []string{"nav"}, LoadScript: good.Loader()},
			{Name: "bad", Slots: []string{"main"}, LoadScript: bad.Loader()},
		},
		Routes: []domain.Route{
			{Name: "home", Path: "/", Fragments: []domain.FragmentRef{{Name: "good"}}},
			{Name: "page", Path: "/page", Fragments: []domain.FragmentRef{{Name: "good"}, {Name: "bad"}}},
		},
	}
	log := &statusLog{}
	o, doc := newTestOrchestrator(t, m, WithHooks(domain.LifecycleHooks{OnStatus: log.hook}))
	ctx := context.Background()

	_, err := o.Apply(ctx, domain.Change{Resource: "/"}, initialMode)
	require.NoError(t, err)

	mounted, err := o.Apply(ctx, domain.Change{Resource: "/page"}, Mode{})
	require.Error(t, err)
	assert.True(t, mounted)
	assert.Equal(t, domain.CodeRender, domain.CodeOf(err))
	assert.True(t, domain.IsRecoverable(err))

	assert.Equal(t, "good", doc.Find("#nav").Content())
	snap := o.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "nav", snap[0].Slot)
	assert.Equal(t, PhaseMounted, snap[0].Phase)

	assert.Equal(t, 1, bad.Calls().Unmount)
	assert.Contains(t, good.Calls().Statuses, domain.StatusError)
	assert.Equal(t,
		[]domain.Status{domain.StatusLoading, domain.StatusError, domain.StatusLoading, domain.StatusDefault},
		log.slot("main"))
}

type badPlacer struct{}

func (badPlacer) Place(empty map[string]bool, candidates []ports.Candidate) map[string]string {
	out := make(map[string]string)
	for _, c := range candidates {
		out["nowhere"] = c.Fragment
	}
	return out
}

func TestOrchestrator_ConfigErrorAbortsBeforeScripts(t *testing.T) {
	a := testutils.NewRecordingScript("A")
	b := testutils.NewRecordingScript("B")
	o, _ := newTestOrchestrator(t, appManifest(a, b), WithPlacer(badPlacer{}))

	_, err := o.Apply(context.Background(), domain.Change{Resource: "/app-a"}, initialMode)
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidMap, domain.CodeOf(err))
	assert.False(t, domain.IsRecoverable(err))
	assert.Equal(t, 0, a.Calls().Loads)
	assert.Nil(t, o.Context().State())
}

func TestOrchestrator_StateChangeHook(t *testing.T) {
	a := testutils.NewRecordingScript("A")
	b := testutils.NewRecordingScript("B")
	var events []*domain.StateChangeEvent
	o, _ := newTestOrchestrator(t, appManifest(a, b), WithHooks(domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, ev *domain.StateChangeEvent) { events = append(events, ev) },
	}))

	_, err := o.Apply(context.Background(), domain.Change{Resource: "/app-a"}, initialMode)
	require.NoError(t, err)
	navigate(t, o, "/nowhere")

	require.Len(t, events, 2)
	assert.True(t, events[0].Mounted)
	assert.Equal(t, "APP_A", events[0].State.Route)
	assert.False(t, events[1].Mounted)
	assert.Nil(t, events[1].State)
}

// twoSlotManifest places good in nav and bad in main on /page; / only uses good.
func twoSlotManifest(good, bad *testutils.RecordingScript) *domain.Manifest {
	return &domain.Manifest{
		Slots: []domain.Slot{{Name: "nav"}, {Name: "main"}},
		Fragments: []domain.Fragment{
			{Name: "good", Slots: []string{"nav"}, LoadScript: good.Loader()},
			{Name: "bad", Slots: []string{"main"}, LoadScript: bad.Loader()},
		},
		Routes: []domain.Route{
			{Name: "home", Path: "/", Fragments: []domain.FragmentRef{{Name: "good"}}},
			{Name: "page", Paths: []string{"/page", "/page/:n"}, Fragments: []domain.FragmentRef{{Name: "good"}, {Name: "bad"}}},
			{Name: "empty", Path: "/empty"},
		},
	}
}

func TestOrchestrator_UpdateFailureIsIsolated(t *testing.T) {
	good := testutils.NewRecordingScript("good")
	bad := testutils.NewRecordingScript("bad")
	o, doc := newTestOrchestrator(t, twoSlotManifest(good, bad))
	ctx := context.Background()

	_, err := o.Apply(ctx, domain.Change{Resource: "/page"}, initialMode)
	require.NoError(t, err)
	require.Len(t, o.Snapshot(), 2)

	bad.Fail = "update"
	mounted, err := o.Apply(ctx, domain.Change{Resource: "/page/2"}, Mode{})
	require.Error(t, err)
	assert.True(t, mounted)
	assert.Equal(t, domain.CodeOnStateChange, domain.CodeOf(err))

	snap := o.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, SlotSnapshot{Slot: "nav", Fragment: "good", Phase: PhaseMounted}, snap[0])
	assert.Equal(t, 1, good.Calls().OnStateChange)
	assert.Equal(t, "good", doc.Find("#nav").Content())
	assert.Equal(t, 1, bad.Calls().Unmount)
	assert.Contains(t, good.Calls().Statuses, domain.StatusError)
}

func TestOrchestrator_FailedSlotRemounts(t *testing.T) {
	good := testutils.NewRecordingScript("good")
	bad := testutils.NewRecordingScript("bad")
	bad.Fail = "render"
	o, doc := newTestOrchestrator(t, twoSlotManifest(good, bad))
	ctx := context.Background()

	_, err := o.Apply(ctx, domain.Change{Resource: "/"}, initialMode)
	require.NoError(t, err)
	_, err = o.Apply(ctx, domain.Change{Resource: "/page"}, Mode{})
	require.Error(t, err)
	require.Len(t, o.Snapshot(), 1)

	bad.Fail = ""
	_, err = o.Apply(ctx, domain.Change{Resource: "/page/2"}, Mode{})
	require.NoError(t, err)

	snap := o.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, SlotSnapshot{Slot: "main", Fragment: "bad", Phase: PhaseMounted}, snap[0])
	assert.Equal(t, 2, bad.Calls().Render)
	assert.Equal(t, 1, bad.Calls().Loads)
	assert.Equal(t, "bad", doc.Find("#main").Content())
}

func TestOrchestrator_RouteWithoutFragmentsClearsPage(t *testing.T) {
	good := testutils.NewRecordingScript("good")
	bad := testutils.NewRecordingScript("bad")
	o, doc := newTestOrchestrator(t, twoSlotManifest(good, bad))
	ctx := context.Background()

	_, err := o.Apply(ctx, domain.Change{Resource: "/page"}, initialMode)
	require.NoError(t, err)

	assert.True(t, navigate(t, o, "/empty"))
	assert.Empty(t, o.Snapshot())
	assert.Equal(t, "empty", o.Context().State().Route)
	assert.Equal(t, "page", o.Context().State().PrevRoute)
	assert.Equal(t, 1, good.Calls().Unmount)
	assert.Equal(t, 1, bad.Calls().Unmount)
	assert.Empty(t, doc.Find("#nav").Content())
}

func TestOrchestrator_ReleasesRetiredSlots(t *testing.T) {
	good := testutils.NewRecordingScript("good")
	bad := testutils.NewRecordingScript("bad")
	bad.Fail = "render"
	var released []string
	o, _ := newTestOrchestrator(t, twoSlotManifest(good, bad), WithHooks(domain.LifecycleHooks{
		OnSlotReleased: func(_ context.Context, ev *domain.SlotReleasedEvent) { released = append(released, ev.Slot) },
	}))
	ctx := context.Background()

	_, err := o.Apply(ctx, domain.Change{Resource: "/"}, initialMode)
	require.NoError(t, err)
	_, err = o.Apply(ctx, domain.Change{Resource: "/page"}, Mode{})
	require.Error(t, err)
	assert.Empty(t, released, "the failed slot still belongs to the current route")

	navigate(t, o, "/")
	assert.Equal(t, []string{"main"}, released)

	require.NoError(t, o.UnmountAll(ctx))
	assert.Equal(t, []string{"main", "nav"}, released)
}
