package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tessera/internal/testutils"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/adapters/pathmatch"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/require"
)

// initialMode is how an engine applies its first change.
var initialMode = Mode{Initial: true, Hydrate: true}

// appManifest declares APP_A (/app-a, SCRIPT_A in APP) and APP_B
// (/app-b and /app-b/next, SCRIPT_B in OTHER).
func appManifest(a, b *testutils.RecordingScript) *domain.Manifest {
	return &domain.Manifest{
		Slots: []domain.Slot{{Name: "APP"}, {Name: "OTHER"}},
		Fragments: []domain.Fragment{
			{Name: "SCRIPT_A", Slots: []string{"APP"}, LoadScript: a.Loader()},
			{Name: "SCRIPT_B", Slots: []string{"OTHER"}, LoadScript: b.Loader()},
		},
		Routes: []domain.Route{
			{Name: "APP_A", Path: "/app-a", Fragments: []domain.FragmentRef{{Name: "SCRIPT_A"}}},
			{Name: "APP_B", Paths: []string{"/app-b", "/app-b/next"}, Fragments: []domain.FragmentRef{{Name: "SCRIPT_B"}}},
		},
	}
}

// statusLog records slot status events per slot.
type statusLog struct {
	mu     sync.Mutex
	bySlot map[string][]domain.Status
}

func (l *statusLog) hook(ctx context.Context, ev *domain.SlotStatusEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bySlot == nil {
		l.bySlot = make(map[string][]domain.Status)
	}
	l.bySlot[ev.Slot] = append(l.bySlot[ev.Slot], ev.Details.Status)
}

func (l *statusLog) slot(name string) []domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Status(nil), l.bySlot[name]...)
}

func newTestOrchestrator(t *testing.T, m *domain.Manifest, opts ...OrchestratorOption) (*Orchestrator, *memory.Element) {
	t.Helper()
	resolver, err := pathmatch.New(m.Routes)
	require.NoError(t, err)

	selectors := make([]string, 0, len(m.Slots))
	for _, s := range m.Slots {
		selectors = append(selectors, s.QuerySelector())
	}
	doc := memory.NewDocument(selectors...)

	base := []OrchestratorOption{
		WithResolver(resolver),
		WithElementProvider(memory.ElementProvider{Interval: time.Millisecond}),
		WithImportTimeout(200 * time.Millisecond),
	}
	o := NewOrchestrator(m, append(base, opts...)...)
	o.Attach(doc)
	return o, doc
}

func navigate(t *testing.T, o *Orchestrator, resource string) bool {
	t.Helper()
	mounted, err := o.Apply(context.Background(), domain.Change{Resource: resource, Event: domain.EventNavigate}, Mode{})
	require.NoError(t, err)
	return mounted
}
