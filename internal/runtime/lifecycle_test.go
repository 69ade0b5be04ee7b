package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/internal/testutils"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	env  *slotEnv
	doc  *memory.Element
	log  *statusLog
	slot domain.Slot
}

func newLifecycleFixture(t *testing.T, slot domain.Slot, fragments ...domain.Fragment) *lifecycleFixture {
	t.Helper()
	m := &domain.Manifest{Slots: []domain.Slot{slot}, Fragments: fragments}
	log := &statusLog{}
	hooks := domain.LifecycleHooks{OnStatus: log.hook}

	scripts := NewScripts(m, script.Env{Routes: m}, 50*time.Millisecond)
	env := &slotEnv{
		scripts:   scripts,
		elements:  memory.ElementProvider{Interval: time.Millisecond},
		container: memory.NewDocument("#main"),
		shared:    &StateContext{},
		timeout:   50 * time.Millisecond,
		logger:    logging.NewNop(),
		hooks:     hooks,
	}
	env.shared.replace(domain.NewState("/", domain.EventNavigate))
	return &lifecycleFixture{env: env, doc: env.container.(*memory.Element), log: log, slot: slot}
}

func (f *lifecycleFixture) lifecycle(fragment string, hydrate bool) *Lifecycle {
	return newLifecycle(f.env, f.slot, fragment, hydrate)
}

func TestLifecycle_MountUpdateUnmount(t *testing.T) {
	rec := testutils.NewRecordingScript("hello")
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "hello", LoadScript: rec.Loader()})
	ctx := context.Background()

	lc := f.lifecycle("hello", false)
	assert.Equal(t, PhaseLoadScript, lc.Phase())

	step, err := lc.Resume(ctx, SignalSettle)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, step.Phase)

	step, err = lc.Resume(ctx, SignalMount)
	require.NoError(t, err)
	assert.Equal(t, PhaseMounted, step.Phase)
	assert.Equal(t, "hello", f.doc.Find("#main").Content())
	assert.Equal(t, []domain.Status{domain.StatusLoading, domain.StatusDefault}, f.log.slot("main"))

	step, err = lc.Resume(ctx, SignalUpdate)
	require.NoError(t, err)
	assert.Equal(t, PhaseMounted, step.Phase)

	step, err = lc.Resume(ctx, SignalUnmount)
	require.NoError(t, err)
	assert.True(t, step.Done)

	calls := rec.Calls()
	assert.Equal(t, 1, calls.Render)
	assert.Equal(t, 0, calls.Hydrate)
	assert.Equal(t, 1, calls.OnStateChange)
	assert.Equal(t, 1, calls.Unmount)
	assert.Equal(t, []domain.Status{
		domain.StatusLoading, domain.StatusDefault,
		domain.StatusLoading, domain.StatusDefault,
		domain.StatusLoading, domain.StatusDefault,
	}, calls.Statuses)
}

func TestLifecycle_InitialMountHydrates(t *testing.T) {
	rec := testutils.NewRecordingScript("hello")
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "hello", LoadScript: rec.Loader()})

	_, err := f.lifecycle("hello", true).Resume(context.Background(), SignalMount)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Calls().Hydrate)
	assert.Equal(t, 0, rec.Calls().Render)
}

func TestLifecycle_Misuse(t *testing.T) {
	rec := testutils.NewRecordingScript("hello")
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "hello", LoadScript: rec.Loader()})
	ctx := context.Background()

	lc := f.lifecycle("hello", false)
	_, err := lc.Resume(ctx, SignalUpdate)
	assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
	assert.False(t, domain.IsRecoverable(err))

	step, err := lc.Resume(ctx, SignalUnmount)
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Equal(t, 0, rec.Calls().Loads)

	_, err = lc.Resume(ctx, SignalSettle)
	assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
	_, err = lc.Throw(ctx, errors.New("other slot"))
	assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
}

func TestLifecycle_ConcurrentResumeIsRejected(t *testing.T) {
	rec := testutils.NewRecordingScript("hello")
	rec.Block = make(chan struct{})
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "hello", LoadScript: rec.Loader()})
	ctx := context.Background()
	lc := f.lifecycle("hello", false)

	done := make(chan error, 1)
	go func() {
		_, err := lc.Resume(ctx, SignalMount)
		done <- err
	}()
	require.Eventually(t, func() bool { return lc.Phase() == PhaseMounting }, time.Second, time.Millisecond)

	_, err := lc.Resume(ctx, SignalSettle)
	assert.Equal(t, domain.CodeNotFinished, domain.CodeOf(err))

	close(rec.Block)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseMounted, lc.Phase())
}

func TestLifecycle_RenderFailureUnmountsOnce(t *testing.T) {
	rec := testutils.NewRecordingScript("broken")
	rec.Fail = "render"
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "broken", LoadScript: rec.Loader()})

	step, err := f.lifecycle("broken", false).Resume(context.Background(), SignalMount)
	require.Error(t, err)
	assert.True(t, step.Done)

	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.StageMount, e.Stage)
	assert.Equal(t, domain.CodeRender, e.Code)
	assert.Equal(t, "main", e.Slot)
	assert.Equal(t, "broken", e.Fragment)
	assert.True(t, e.Recoverable)

	assert.Equal(t, 1, rec.Calls().Unmount)
	assert.Equal(t, []domain.Status{
		domain.StatusLoading, domain.StatusError, domain.StatusLoading, domain.StatusDefault,
	}, f.log.slot("main"))
}

func TestLifecycle_UpdateFailure(t *testing.T) {
	rec := testutils.NewRecordingScript("flaky")
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "flaky", LoadScript: rec.Loader()})
	ctx := context.Background()
	lc := f.lifecycle("flaky", false)

	_, err := lc.Resume(ctx, SignalMount)
	require.NoError(t, err)

	rec.Fail = "update"
	step, err := lc.Resume(ctx, SignalUpdate)
	assert.Equal(t, domain.CodeOnStateChange, domain.CodeOf(err))
	assert.True(t, step.Done)
	assert.Equal(t, 1, rec.Calls().Unmount)
}

func TestLifecycle_MissingElement(t *testing.T) {
	rec := testutils.NewRecordingScript("hello")
	f := newLifecycleFixture(t, domain.Slot{Name: "side"}, domain.Fragment{Name: "hello", LoadScript: rec.Loader()})

	step, err := f.lifecycle("hello", false).Resume(context.Background(), SignalMount)
	assert.Equal(t, domain.CodeElementNotFound, domain.CodeOf(err))
	assert.True(t, step.Done)
	assert.Equal(t, 0, rec.Calls().Render)
	assert.Equal(t, 0, rec.Calls().Unmount)
}

func TestLifecycle_LoadFailureUsesFallbackMarkup(t *testing.T) {
	slot := domain.Slot{
		Name:          "main",
		LoadingMarkup: func() string { return "loading..." },
		ErrorMarkup:   func(err error) string { return "unavailable" },
	}
	f := newLifecycleFixture(t, slot, domain.Fragment{Name: "down", LoadScript: func(ctx context.Context, s *domain.State) (domain.Script, error) {
		return nil, errors.New("unreachable")
	}})

	step, err := f.lifecycle("down", false).Resume(context.Background(), SignalMount)
	assert.Equal(t, domain.CodeLoadScript, domain.CodeOf(err))
	assert.Equal(t, domain.StageLoadScript, mustError(t, err).Stage)
	assert.True(t, step.Done)
	assert.Equal(t, "unavailable", f.doc.Find("#main").Content())
	assert.Equal(t, []domain.Status{domain.StatusError}, f.log.slot("main"))
}

func TestLifecycle_UnmanagedFragment(t *testing.T) {
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "legacy"})

	step, err := f.lifecycle("legacy", false).Resume(context.Background(), SignalMount)
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.False(t, step.Managed)
}

func TestLifecycle_ThrowBroadcastsError(t *testing.T) {
	rec := testutils.NewRecordingScript("hello")
	f := newLifecycleFixture(t, domain.Slot{Name: "main"}, domain.Fragment{Name: "hello", LoadScript: rec.Loader()})
	ctx := context.Background()
	lc := f.lifecycle("hello", false)

	_, err := lc.Resume(ctx, SignalMount)
	require.NoError(t, err)

	step, err := lc.Throw(ctx, errors.New("sibling failed"))
	require.NoError(t, err)
	assert.Equal(t, PhaseMounted, step.Phase)
	statuses := rec.Calls().Statuses
	assert.Equal(t, domain.StatusError, statuses[len(statuses)-1])
}

func mustError(t *testing.T, err error) *domain.Error {
	t.Helper()
	e, ok := domain.AsError(err)
	require.True(t, ok)
	return e
}
