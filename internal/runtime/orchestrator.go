package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/script"
	"golang.org/x/sync/errgroup"
)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithResolver sets the route resolver.
func WithResolver(r ports.RouteResolver) OrchestratorOption {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithAdditionalState sets the provider merged into every new state.
func WithAdditionalState(p ports.AdditionalStateProvider) OrchestratorOption {
	return func(o *Orchestrator) { o.additional = p }
}

// WithElementProvider sets how slot elements are found.
func WithElementProvider(p ports.ElementProvider) OrchestratorOption {
	return func(o *Orchestrator) { o.env.elements = p }
}

// WithPlacer sets the slot placer used for fragments without an explicit slot.
func WithPlacer(p ports.SlotPlacer) OrchestratorOption {
	return func(o *Orchestrator) { o.placer = p }
}

// WithHistory sets the history handed to version 3 scripts.
func WithHistory(h ports.History) OrchestratorOption {
	return func(o *Orchestrator) { o.history = h }
}

// WithImportTimeout bounds script loads and element lookups.
func WithImportTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.env.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.env.logger = l }
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) OrchestratorOption {
	return func(o *Orchestrator) { o.env.hooks = h }
}

// Orchestrator owns the mounted lifecycles and applies state changes to them.
// Apply calls must be serialized; StateChanger does that.
type Orchestrator struct {
	manifest   *domain.Manifest
	resolver   ports.RouteResolver
	additional ports.AdditionalStateProvider
	placer     ports.SlotPlacer
	history    ports.History
	reconciler *Reconciler
	env        *slotEnv

	mu      sync.Mutex
	mounted map[string]*Lifecycle
	// retired holds slots whose lifecycle ended, until the slot is released
	// or mounted again.
	retired map[string]string
}

// NewOrchestrator creates an orchestrator for manifest.
func NewOrchestrator(manifest *domain.Manifest, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		manifest: manifest,
		env: &slotEnv{
			shared:  &StateContext{},
			timeout: manifest.ImportTimeout,
			logger:  logging.NewNop(),
		},
		mounted: make(map[string]*Lifecycle),
		retired: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.env.timeout <= 0 {
		o.env.timeout = DefaultImportTimeout
	}

	o.reconciler = NewReconciler(manifest, o.placer)
	o.env.scripts = NewScripts(manifest, script.Env{Routes: manifest, History: o.history}, o.env.timeout)
	o.env.scripts.logger = o.env.logger
	o.env.scripts.hooks = o.env.hooks
	return o
}

// Attach sets the container slot elements are looked up in.
func (o *Orchestrator) Attach(container domain.Element) {
	o.env.container = container
}

// Context returns the shared state context.
func (o *Orchestrator) Context() *StateContext { return o.env.shared }

// Reconciler returns the reconciler used by Apply.
func (o *Orchestrator) Reconciler() *Reconciler { return o.reconciler }

// Apply runs one state change. It returns false when nothing could be mounted
// and the change was not the initial render, which includes resources no route
// manages and routes whose fragments have no script.
func (o *Orchestrator) Apply(ctx context.Context, change domain.Change, mode Mode) (mounted bool, err error) {
	start := time.Now()
	var next *domain.State
	defer func() {
		o.emitStateChange(ctx, next, mounted, time.Since(start), err)
	}()

	// 1. Resolve the route and build the new state
	routeName, err := o.resolve(ctx, change.Resource)
	if err != nil {
		return false, err
	}
	if routeName == "" {
		o.env.logger.DebugContext(ctx, "resource not managed", "resource", change.Resource)
		return false, nil
	}
	next, err = o.nextState(ctx, routeName, change)
	if err != nil {
		return false, err
	}

	// 2. Reconcile; configuration errors abort before anything runs
	diff, err := o.reconciler.Reconcile(next.Route, next.PrevRoute)
	if err != nil {
		return false, err
	}
	// A route without fragments is managed: it clears the page.
	if !mode.Initial && len(diff.Update) == 0 && len(diff.Mount) > 0 && o.unmanaged(diff.Mount) {
		o.env.logger.DebugContext(ctx, "route has no managed fragment", "route", next.Route)
		return false, nil
	}
	o.env.shared.replace(next)

	o.mu.Lock()
	for slot, f := range diff.Update {
		if _, ok := o.mounted[slot]; !ok {
			delete(diff.Update, slot)
			diff.Mount[slot] = f
		}
	}
	o.mu.Unlock()

	o.env.logger.DebugContext(ctx, "applying state change",
		"route", next.Route, "prev", next.PrevRoute,
		"mount", len(diff.Mount), "update", len(diff.Update), "unmount", len(diff.Unmount))

	// 3. settle -> update -> unmount -> mount -> settle
	var errs []error
	run := func(jobs []job) error {
		results := o.runGroup(ctx, jobs)
		failures, abort := o.collect(ctx, results)
		errs = append(errs, failures...)
		return abort
	}

	if err := run(o.jobs(nil, SignalSettle)); err != nil {
		return false, err
	}
	if err := run(o.jobs(diff.Update, SignalUpdate)); err != nil {
		return false, err
	}
	if err := run(o.jobs(diff.Unmount, SignalUnmount)); err != nil {
		return false, err
	}

	mountJobs, err := o.create(diff.Mount, mode.Hydrate)
	if err != nil {
		return false, err
	}
	results := o.runGroup(ctx, mountJobs)
	managed := 0
	for _, r := range results {
		if r.step.Managed {
			managed++
		}
	}
	failures, abort := o.collect(ctx, results)
	if abort != nil {
		return false, abort
	}
	errs = append(errs, failures...)

	if err := run(o.jobs(nil, SignalSettle)); err != nil {
		return false, err
	}
	placement, _ := o.reconciler.Placement(next.Route)
	o.release(ctx, placement)

	return mode.Initial || len(diff.Mount) == 0 || managed > 0, errors.Join(errs...)
}

// UnmountAll drives every mounted lifecycle to done and forgets the current state.
func (o *Orchestrator) UnmountAll(ctx context.Context) error {
	results := o.runGroup(ctx, o.jobs(nil, SignalUnmount))
	o.mu.Lock()
	for slot, lc := range o.mounted {
		o.retired[slot] = lc.Fragment()
	}
	clear(o.mounted)
	o.mu.Unlock()
	o.env.shared.replace(nil)
	o.release(ctx, nil)

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errors.Join(errs...)
}

// SlotSnapshot describes one mounted slot.
type SlotSnapshot = domain.SlotSnapshot

// Snapshot returns the mounted slots ordered by name.
func (o *Orchestrator) Snapshot() []SlotSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]SlotSnapshot, 0, len(o.mounted))
	for _, slot := range slices.Sorted(maps.Keys(o.mounted)) {
		lc := o.mounted[slot]
		out = append(out, SlotSnapshot{Slot: slot, Fragment: lc.Fragment(), Phase: lc.Phase()})
	}
	return out
}

func (o *Orchestrator) resolve(ctx context.Context, resource string) (string, error) {
	if o.resolver == nil {
		return "", domain.ConfigError(domain.CodeMissingRoute, "no route resolver configured")
	}
	name, err := o.resolver.RouteNameFromResource(ctx, resource)
	if errors.Is(err, domain.ErrNoRoute) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", resource, err)
	}
	return name, nil
}

func (o *Orchestrator) nextState(ctx context.Context, routeName string, change domain.Change) (*domain.State, error) {
	next := domain.NewState(change.Resource, change.Event)
	next.Route = routeName
	next.PrevRoute = o.env.shared.Route()
	for k, v := range change.Extra {
		next.Extra[k] = v
	}
	if o.additional == nil {
		return next, nil
	}
	extra, err := o.additional.AdditionalState(ctx, routeName, change.Resource)
	if err != nil {
		return nil, fmt.Errorf("failed to get additional state for %q: %w", routeName, err)
	}
	return next.WithExtra(extra), nil
}

// unmanaged reports whether no fragment of a mount set has a script loader.
func (o *Orchestrator) unmanaged(mount map[string]string) bool {
	for _, name := range mount {
		if f, ok := o.manifest.Fragment(name); ok && f.LoadScript != nil {
			return false
		}
	}
	return true
}

type job struct {
	lc  *Lifecycle
	sig Signal
}

type result struct {
	lc   *Lifecycle
	sig  Signal
	step Step
	err  error
}

// jobs returns one job per mounted lifecycle in slots, or per mounted lifecycle when slots is nil.
func (o *Orchestrator) jobs(slots map[string]string, sig Signal) []job {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []job
	for _, slot := range slices.Sorted(maps.Keys(o.mounted)) {
		if slots != nil {
			if _, ok := slots[slot]; !ok {
				continue
			}
		}
		out = append(out, job{lc: o.mounted[slot], sig: sig})
	}
	return out
}

// create registers a new lifecycle per mount slot.
func (o *Orchestrator) create(mount map[string]string, hydrate bool) ([]job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for slot, f := range mount {
		if existing, ok := o.mounted[slot]; ok {
			return nil, domain.MisuseError(domain.CodeOverwriteExisting, slot, f,
				"slot already holds %q", existing.Fragment())
		}
	}

	out := make([]job, 0, len(mount))
	for _, slotName := range slices.Sorted(maps.Keys(mount)) {
		slot, _ := o.manifest.Slot(slotName)
		lc := newLifecycle(o.env, slot, mount[slotName], hydrate)
		o.mounted[slotName] = lc
		out = append(out, job{lc: lc, sig: SignalMount})
	}
	return out, nil
}

// runGroup resumes every job concurrently and waits for all of them.
func (o *Orchestrator) runGroup(ctx context.Context, jobs []job) []result {
	results := make([]result, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			step, err := j.lc.Resume(ctx, j.sig)
			if err == nil && j.sig == SignalUnmount && !step.Done {
				err = domain.MisuseError(domain.CodeNotFinished, j.lc.Slot(), j.lc.Fragment(),
					"unmount left lifecycle in phase %s", step.Phase)
			}
			results[i] = result{lc: j.lc, sig: j.sig, step: step, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// collect drops finished lifecycles and broadcasts failures to the remaining ones.
// It returns the slot failures and, separately, the first misuse error.
func (o *Orchestrator) collect(ctx context.Context, results []result) ([]error, error) {
	var failures []error
	for _, r := range results {
		if isMisuse(r.err) {
			return nil, r.err
		}
		if r.step.Done || r.err != nil {
			o.retire(r.lc)
		}
		if r.err != nil {
			failures = append(failures, r.err)
		}
	}

	for _, failure := range failures {
		for _, j := range o.jobs(nil, SignalSettle) {
			if _, err := j.lc.Throw(ctx, failure); err != nil {
				return nil, err
			}
		}
	}
	return failures, nil
}

func (o *Orchestrator) retire(lc *Lifecycle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mounted[lc.Slot()] == lc {
		delete(o.mounted, lc.Slot())
		o.retired[lc.Slot()] = lc.Fragment()
	}
}

// release emits OnSlotReleased for every retired slot that is neither mounted
// nor placed by keep. A failed slot of the current route stays retired until
// a later change mounts it again.
func (o *Orchestrator) release(ctx context.Context, keep map[string]string) {
	o.mu.Lock()
	var released []*domain.SlotReleasedEvent
	for _, slot := range slices.Sorted(maps.Keys(o.retired)) {
		if _, ok := o.mounted[slot]; ok {
			delete(o.retired, slot)
			continue
		}
		if _, ok := keep[slot]; ok {
			continue
		}
		released = append(released, &domain.SlotReleasedEvent{
			Timestamp: time.Now(),
			Slot:      slot,
			Fragment:  o.retired[slot],
		})
		delete(o.retired, slot)
	}
	o.mu.Unlock()

	if o.env.hooks.OnSlotReleased == nil {
		return
	}
	for _, ev := range released {
		o.env.hooks.OnSlotReleased(ctx, ev)
	}
}

func (o *Orchestrator) emitStateChange(ctx context.Context, state *domain.State, mounted bool, d time.Duration, err error) {
	if err != nil {
		o.env.logger.ErrorContext(ctx, "state change failed", "err", err)
	}
	if o.env.hooks.OnStateChange == nil {
		return
	}
	o.env.hooks.OnStateChange(ctx, &domain.StateChangeEvent{
		Timestamp: time.Now(),
		State:     state,
		Mounted:   mounted,
		Duration:  d,
		Err:       err,
	})
}

func isMisuse(err error) bool {
	switch domain.CodeOf(err) {
	case domain.CodeOverwriteExisting, domain.CodeNotFinished, domain.CodeInvalidTransition:
		return true
	}
	return false
}
