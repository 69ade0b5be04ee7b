package tessera

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/internal/runtime"
	loamAdapter "github.com/aretw0/tessera/pkg/adapters/loam"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/adapters/pathmatch"
	"github.com/aretw0/tessera/pkg/config"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/ports"
)

// SlotSnapshot describes one mounted slot.
type SlotSnapshot = domain.SlotSnapshot

// StatusListener receives the page-level status each time it changes.
// Listeners are called one at a time, in the order the statuses were
// aggregated, and must not wait on the engine that calls them.
type StatusListener func(ctx context.Context, event domain.HostStatusEvent)

// Engine composes a page out of fragments.
// It is itself a version 6 script, so an engine can be mounted as a fragment of another engine.
type Engine struct {
	Name string

	manifest      *domain.Manifest
	loader        ports.ManifestLoader
	resolver      ports.RouteResolver
	additional    ports.AdditionalStateProvider
	elements      ports.ElementProvider
	placer        ports.SlotPlacer
	history       ports.History
	publisher     ports.EventPublisher
	topic         string
	importTimeout time.Duration
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	listeners     []StatusListener

	orchestrator *runtime.Orchestrator
	changer      *runtime.StateChanger
	status       *observability.StatusAggregator
	// statusMu orders aggregation and delivery of page-level statuses.
	statusMu sync.Mutex

	mu       sync.Mutex
	rendered bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithManifest uses manifest directly, bypassing any loader.
func WithManifest(m *domain.Manifest) Option {
	return func(e *Engine) { e.manifest = m }
}

// WithLoader injects a custom ManifestLoader, bypassing the default file and Loam loaders.
func WithLoader(l ports.ManifestLoader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithImportTimeout overrides the manifest import timeout.
func WithImportTimeout(d time.Duration) Option {
	return func(e *Engine) { e.importTimeout = d }
}

// WithResolver replaces the default path pattern resolver.
func WithResolver(r ports.RouteResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithAdditionalState sets the provider of extra state fields.
func WithAdditionalState(p ports.AdditionalStateProvider) Option {
	return func(e *Engine) { e.additional = p }
}

// WithElementProvider sets how slot elements are found. Defaults to the in-memory DOM.
func WithElementProvider(p ports.ElementProvider) Option {
	return func(e *Engine) { e.elements = p }
}

// WithPlacer replaces the default slot placer.
func WithPlacer(p ports.SlotPlacer) Option {
	return func(e *Engine) { e.placer = p }
}

// WithHistory sets the history handed to version 3 scripts.
func WithHistory(h ports.History) Option {
	return func(e *Engine) { e.history = h }
}

// WithPublisher publishes every page-level status change on topic.
func WithPublisher(p ports.EventPublisher, topic string) Option {
	return func(e *Engine) {
		e.publisher = p
		e.topic = topic
	}
}

// WithStatusListener registers a listener for page-level status changes.
func WithStatusListener(l StatusListener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = e.hooks.Merge(hooks) }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New initializes a new Tessera Engine.
// By default the manifest is read from path: a YAML or JSON file, or a Loam
// repository when path is a directory. With WithManifest or WithLoader, path is
// only used as the engine name.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if path != "" {
		eng.Name = filepath.Base(path)
	}

	if eng.manifest == nil {
		if eng.loader == nil {
			loader, err := defaultLoader(path)
			if err != nil {
				return nil, err
			}
			eng.loader = loader
		}
		m, err := eng.loader.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
		eng.manifest = m
	}
	if err := eng.manifest.Validate(); err != nil {
		return nil, err
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("manifest", eng.Name)
	}

	if eng.resolver == nil {
		r, err := pathmatch.New(eng.manifest.Routes)
		if err != nil {
			return nil, fmt.Errorf("invalid route paths: %w", err)
		}
		eng.resolver = r
		if eng.additional == nil {
			eng.additional = r
		}
	}
	if eng.elements == nil {
		eng.elements = memory.ElementProvider{}
	}

	eng.status = observability.NewStatusAggregator()
	hooks := eng.hooks.Merge(domain.LifecycleHooks{
		OnStatus:       eng.onSlotStatus,
		OnSlotReleased: eng.onSlotReleased,
	})

	runtimeOpts := []runtime.OrchestratorOption{
		runtime.WithResolver(eng.resolver),
		runtime.WithElementProvider(eng.elements),
		runtime.WithPlacer(eng.placer),
		runtime.WithHistory(eng.history),
		runtime.WithLogger(eng.logger),
		runtime.WithHooks(hooks),
	}
	if eng.additional != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithAdditionalState(eng.additional))
	}
	if eng.importTimeout > 0 {
		runtimeOpts = append(runtimeOpts, runtime.WithImportTimeout(eng.importTimeout))
	}
	eng.orchestrator = runtime.NewOrchestrator(eng.manifest, runtimeOpts...)
	eng.changer = runtime.NewStateChanger(eng.orchestrator.Apply, eng.logger, hooks)

	return eng, nil
}

func defaultLoader(path string) (ports.ManifestLoader, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required when no manifest or loader is provided")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest path: %w", err)
	}
	if info.IsDir() {
		return loamAdapter.Open(path)
	}
	return config.NewFileLoader(path), nil
}

// Version implements the version 6 script contract.
func (e *Engine) Version() int { return 6 }

// Render performs the initial render of the page into an empty container.
// Fragments are rendered from scratch.
func (e *Engine) Render(ctx context.Context, container domain.Element, state *domain.State) error {
	_, err := e.start(ctx, container, changeOf(state, domain.EventInit), false)
	return err
}

// Hydrate performs the initial render of a container that already holds the
// page markup. Fragments are hydrated.
func (e *Engine) Hydrate(ctx context.Context, container domain.Element, state *domain.State) error {
	_, err := e.start(ctx, container, changeOf(state, domain.EventInit), true)
	return err
}

// OnStateChange applies a new state and waits for every queued change to settle.
func (e *Engine) OnStateChange(ctx context.Context, state *domain.State) error {
	_, err := e.Navigate(ctx, changeOf(state, domain.EventNavigate))
	return err
}

// Unmount waits for pending changes, then unmounts every fragment.
func (e *Engine) Unmount(ctx context.Context, container domain.Element, state *domain.State) error {
	if _, err := e.changer.Wait(ctx); err != nil && ctx.Err() != nil {
		return err
	}
	e.mu.Lock()
	e.rendered = false
	e.mu.Unlock()
	return e.orchestrator.UnmountAll(ctx)
}

// OnUpdateStatus relays the status of an embedding engine to the status listeners.
func (e *Engine) OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state *domain.State) error {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.notify(ctx, domain.HostStatusEvent{Timestamp: time.Now(), Details: details})
	return nil
}

// Start attaches container and applies change as the initial render.
// Fragments are hydrated, since the container may already hold their markup.
// It reports whether anything could be mounted.
func (e *Engine) Start(ctx context.Context, container domain.Element, change domain.Change) (bool, error) {
	return e.start(ctx, container, change, true)
}

func (e *Engine) start(ctx context.Context, container domain.Element, change domain.Change, hydrate bool) (bool, error) {
	e.mu.Lock()
	e.rendered = true
	e.mu.Unlock()
	e.orchestrator.Attach(container)
	e.changer.Submit(ctx, change, runtime.Mode{Initial: true, Hydrate: hydrate})
	return e.changer.Wait(ctx)
}

// Navigate queues change and waits until the engine is idle.
// It returns false when the resource is not managed by the engine and the host
// should treat the navigation as an external link.
func (e *Engine) Navigate(ctx context.Context, change domain.Change) (bool, error) {
	e.Submit(ctx, change)
	return e.changer.Wait(ctx)
}

// Submit queues change without waiting. A change still queued when another
// one is submitted is dropped.
func (e *Engine) Submit(ctx context.Context, change domain.Change) {
	e.changer.Submit(ctx, change, runtime.Mode{})
}

// Wait blocks until no change is running or queued and returns the result of the last one.
func (e *Engine) Wait(ctx context.Context) (bool, error) {
	return e.changer.Wait(ctx)
}

// Rendered reports whether Start (or Render) was called since the last Unmount.
func (e *Engine) Rendered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rendered
}

// State returns the state of the last applied change, or nil.
func (e *Engine) State() *domain.State {
	return e.orchestrator.Context().State().Snapshot()
}

// Snapshot returns the mounted slots ordered by name.
func (e *Engine) Snapshot() []SlotSnapshot {
	return e.orchestrator.Snapshot()
}

// Status returns the aggregated page status.
func (e *Engine) Status() domain.HostStatusEvent {
	return e.status.Current()
}

// Manifest returns the manifest the engine was built from.
func (e *Engine) Manifest() *domain.Manifest {
	return e.manifest
}

// Placement returns the slot to fragment map of a route.
func (e *Engine) Placement(route string) (map[string]string, error) {
	p, err := e.orchestrator.Reconciler().Placement(route)
	if err != nil {
		return nil, err
	}
	return maps.Clone(p), nil
}

// Watch returns a channel that signals when the underlying manifest changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the loader the manifest came from, or nil.
func (e *Engine) Loader() ports.ManifestLoader {
	return e.loader
}

func (e *Engine) onSlotStatus(ctx context.Context, ev *domain.SlotStatusEvent) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	if host, changed := e.status.Observe(ev); changed {
		e.notify(ctx, host)
	}
}

func (e *Engine) onSlotReleased(ctx context.Context, ev *domain.SlotReleasedEvent) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	if host, changed := e.status.Forget(ev.Slot); changed {
		e.notify(ctx, host)
	}
}

// notify must be called with statusMu held.
func (e *Engine) notify(ctx context.Context, ev domain.HostStatusEvent) {
	for _, l := range e.listeners {
		l(ctx, ev)
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, e.topic, ev); err != nil {
		e.logger.WarnContext(ctx, "failed to publish status", "topic", e.topic, "err", err)
	}
}

func changeOf(state *domain.State, event string) domain.Change {
	if state == nil {
		return domain.Change{Event: event}
	}
	c := domain.Change{
		Resource: state.Resource,
		Event:    state.Event,
		Extra:    maps.Clone(state.Extra),
	}
	if c.Event == "" {
		c.Event = event
	}
	return c
}
