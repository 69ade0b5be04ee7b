package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/script"
)

// Phase is the position of a lifecycle in its state machine.
type Phase = domain.Phase

const (
	PhaseLoadScript       = domain.PhaseLoadScript
	PhaseReady            = domain.PhaseReady
	PhaseMounting         = domain.PhaseMounting
	PhaseMounted          = domain.PhaseMounted
	PhaseUpdating         = domain.PhaseUpdating
	PhaseUnmounting       = domain.PhaseUnmounting
	PhaseErrorHandling    = domain.PhaseErrorHandling
	PhaseUnmountingFailed = domain.PhaseUnmountingFailed
	PhaseDone             = domain.PhaseDone
)

// Signal tells a suspended lifecycle what to do next.
type Signal string

const (
	// SignalSettle advances to the next stable point without a transition.
	SignalSettle  Signal = "settle"
	SignalMount   Signal = "mount"
	SignalUpdate  Signal = "update"
	SignalUnmount Signal = "unmount"
)

// Step is the result of a resume.
type Step struct {
	Phase Phase
	Done  bool
	// Managed is false once the fragment turned out to have no script.
	Managed bool
}

// slotEnv is what every lifecycle of an orchestrator shares.
type slotEnv struct {
	scripts   *Scripts
	elements  ports.ElementProvider
	container domain.Element
	shared    *StateContext
	timeout   time.Duration
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// Lifecycle drives the script of one fragment mounted in one slot.
// It suspends between resumes; the driver must not resume it concurrently
// and must not resume it after it reported Done.
type Lifecycle struct {
	env      *slotEnv
	slot     domain.Slot
	fragment string
	hydrate  bool

	mu      sync.Mutex
	phase   Phase
	running bool
	managed bool
	script  script.Adapted
	el      domain.Element
}

func newLifecycle(env *slotEnv, slot domain.Slot, fragment string, hydrate bool) *Lifecycle {
	return &Lifecycle{
		env:      env,
		slot:     slot,
		fragment: fragment,
		hydrate:  hydrate,
		phase:    PhaseLoadScript,
		managed:  true,
	}
}

// Slot returns the slot name.
func (l *Lifecycle) Slot() string { return l.slot.Name }

// Fragment returns the fragment name.
func (l *Lifecycle) Fragment() string { return l.fragment }

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Resume continues the lifecycle with sig until its next suspension point.
// Errors of the slot's own script retire the lifecycle (the step is Done) and
// are returned as recoverable *domain.Error values.
func (l *Lifecycle) Resume(ctx context.Context, sig Signal) (Step, error) {
	if err := l.enter("resume " + string(sig)); err != nil {
		return l.step(), err
	}
	defer l.leave()

	var err error
	switch l.Phase() {
	case PhaseLoadScript:
		switch sig {
		case SignalSettle:
			err = l.load(ctx)
		case SignalMount:
			if err = l.load(ctx); err == nil && l.Phase() == PhaseReady {
				err = l.mount(ctx)
			}
		case SignalUnmount:
			l.setPhase(ctx, PhaseDone)
		default:
			err = l.misuse(sig)
		}
	case PhaseReady:
		switch sig {
		case SignalSettle:
		case SignalMount:
			err = l.mount(ctx)
		case SignalUnmount:
			l.setPhase(ctx, PhaseDone)
		default:
			err = l.misuse(sig)
		}
	case PhaseMounted:
		switch sig {
		case SignalSettle:
		case SignalUpdate:
			err = l.update(ctx)
		case SignalUnmount:
			err = l.unmount(ctx)
		default:
			err = l.misuse(sig)
		}
	default:
		err = l.misuse(sig)
	}
	return l.step(), err
}

// Throw injects the failure of another slot at the current suspension point.
// A mounted lifecycle broadcasts an ERROR status and stays where it is.
func (l *Lifecycle) Throw(ctx context.Context, cause error) (Step, error) {
	if err := l.enter("throw"); err != nil {
		return l.step(), err
	}
	defer l.leave()

	if l.Phase() != PhaseLoadScript {
		l.status(ctx, domain.Failed(cause))
	}
	return l.step(), nil
}

func (l *Lifecycle) enter(op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.running:
		return domain.MisuseError(domain.CodeNotFinished, l.slot.Name, l.fragment, "%s while a previous resume is pending", op)
	case l.phase == PhaseDone:
		return domain.MisuseError(domain.CodeInvalidTransition, l.slot.Name, l.fragment, "%s after done", op)
	}
	l.running = true
	return nil
}

func (l *Lifecycle) leave() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

func (l *Lifecycle) step() Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Step{Phase: l.phase, Done: l.phase == PhaseDone, Managed: l.managed}
}

func (l *Lifecycle) misuse(sig Signal) error {
	return domain.MisuseError(domain.CodeInvalidTransition, l.slot.Name, l.fragment, "cannot %s in phase %s", sig, l.Phase())
}

func (l *Lifecycle) setPhase(ctx context.Context, p Phase) {
	l.mu.Lock()
	l.phase = p
	l.mu.Unlock()

	l.env.logger.DebugContext(ctx, "lifecycle phase", "slot", l.slot.Name, "fragment", l.fragment, "phase", p)
	if l.env.hooks.OnPhase != nil {
		l.env.hooks.OnPhase(ctx, &domain.PhaseEvent{
			Timestamp: time.Now(),
			Slot:      l.slot.Name,
			Fragment:  l.fragment,
			Phase:     string(p),
		})
	}
}

func (l *Lifecycle) load(ctx context.Context) error {
	if l.slot.LoadingMarkup != nil && !l.env.scripts.Loaded(l.fragment) {
		l.fallback(ctx, l.slot.LoadingMarkup())
	}

	a, err := l.env.scripts.Get(ctx, l.fragment, l.env.shared.State())
	if err != nil {
		err = l.wrap(domain.StageLoadScript, domain.CodeLoadScript, err)
		l.status(ctx, domain.Failed(err))
		if l.slot.ErrorMarkup != nil {
			l.fallback(ctx, l.slot.ErrorMarkup(err))
		}
		l.setPhase(ctx, PhaseDone)
		return err
	}
	if a == nil {
		l.mu.Lock()
		l.managed = false
		l.mu.Unlock()
		l.setPhase(ctx, PhaseDone)
		return nil
	}

	l.mu.Lock()
	l.script = a
	l.mu.Unlock()
	l.setPhase(ctx, PhaseReady)
	return nil
}

func (l *Lifecycle) mount(ctx context.Context) error {
	l.setPhase(ctx, PhaseMounting)
	l.status(ctx, domain.Loading())

	el, err := l.element(ctx)
	if err != nil {
		return l.fail(ctx, err)
	}
	l.mu.Lock()
	l.el = el
	l.mu.Unlock()

	state := l.env.shared.State()
	if l.hydrate {
		err = l.script.Hydrate(ctx, el, state)
		err = l.wrap(domain.StageMount, domain.CodeHydrate, err)
	} else {
		err = l.script.Render(ctx, el, state)
		err = l.wrap(domain.StageMount, domain.CodeRender, err)
	}
	if err != nil {
		return l.fail(ctx, err)
	}

	l.status(ctx, domain.Ready())
	l.setPhase(ctx, PhaseMounted)
	return nil
}

func (l *Lifecycle) update(ctx context.Context) error {
	l.setPhase(ctx, PhaseUpdating)
	l.status(ctx, domain.Loading())

	err := l.script.OnStateChange(ctx, l.env.shared.State())
	if err != nil {
		return l.fail(ctx, l.wrap(domain.StageUpdate, domain.CodeOnStateChange, err))
	}

	l.status(ctx, domain.Ready())
	l.setPhase(ctx, PhaseMounted)
	return nil
}

func (l *Lifecycle) unmount(ctx context.Context) error {
	l.setPhase(ctx, PhaseUnmounting)
	l.status(ctx, domain.Loading())

	err := l.script.Unmount(ctx, l.el, l.env.shared.State())
	err = l.wrap(domain.StageUnmount, domain.CodeUnmount, err)
	if err != nil {
		l.status(ctx, domain.Failed(err))
	} else {
		l.status(ctx, domain.Ready())
	}
	l.setPhase(ctx, PhaseDone)
	return err
}

// fail reports err, makes one unmount attempt if an element was obtained and retires the lifecycle.
func (l *Lifecycle) fail(ctx context.Context, err error) error {
	l.setPhase(ctx, PhaseErrorHandling)
	l.env.logger.WarnContext(ctx, "fragment failed", "slot", l.slot.Name, "fragment", l.fragment, "err", err)
	l.status(ctx, domain.Failed(err))

	l.setPhase(ctx, PhaseUnmountingFailed)
	if l.el != nil {
		l.status(ctx, domain.Loading())
		if uerr := l.script.Unmount(ctx, l.el, l.env.shared.State()); uerr != nil {
			uerr = l.wrap(domain.StageUnmount, domain.CodeUnmount, uerr)
			l.env.logger.WarnContext(ctx, "unmount after failure failed", "slot", l.slot.Name, "fragment", l.fragment, "err", uerr)
			l.status(ctx, domain.Failed(uerr))
		} else {
			l.status(ctx, domain.Ready())
		}
	}

	l.setPhase(ctx, PhaseDone)
	return err
}

func (l *Lifecycle) element(ctx context.Context) (domain.Element, error) {
	if l.env.elements == nil {
		return nil, l.elementError(fmt.Errorf("no element provider"))
	}
	lookupCtx, cancel := context.WithTimeout(ctx, l.env.timeout)
	defer cancel()

	el, err := l.env.elements.GetElement(lookupCtx, l.env.container, l.slot.QuerySelector())
	if err != nil {
		return nil, l.elementError(err)
	}
	if el == nil {
		return nil, l.elementError(fmt.Errorf("no element matches %q", l.slot.QuerySelector()))
	}
	return el, nil
}

func (l *Lifecycle) elementError(err error) error {
	return &domain.Error{
		Stage:       domain.StageMount,
		Slot:        l.slot.Name,
		Fragment:    l.fragment,
		Level:       domain.LevelError,
		Code:        domain.CodeElementNotFound,
		Recoverable: true,
		Err:         err,
	}
}

// fallback writes slot markup without going through a script. Lookup failures are ignored.
func (l *Lifecycle) fallback(ctx context.Context, markup string) {
	el, err := l.element(ctx)
	if err != nil {
		return
	}
	el.SetContent(markup)
}

// status delivers details to the script (best effort) and to the OnStatus hook.
func (l *Lifecycle) status(ctx context.Context, details domain.StatusDetails) {
	if l.script != nil {
		if err := l.script.OnUpdateStatus(ctx, details, l.env.shared.State()); err != nil {
			l.env.logger.DebugContext(ctx, "onUpdateStatus failed", "slot", l.slot.Name, "fragment", l.fragment, "err", err)
		}
	}
	if l.env.hooks.OnStatus != nil {
		l.env.hooks.OnStatus(ctx, &domain.SlotStatusEvent{
			Timestamp: time.Now(),
			Slot:      l.slot.Name,
			Fragment:  l.fragment,
			Details:   details,
		})
	}
}

// wrap turns a script error into a recoverable *domain.Error carrying this slot.
// Errors that already are *domain.Error keep their code.
func (l *Lifecycle) wrap(stage domain.Stage, code domain.Code, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := domain.AsError(err); ok {
		cp := *e
		if cp.Slot == "" {
			cp.Slot = l.slot.Name
		}
		if cp.Fragment == "" {
			cp.Fragment = l.fragment
		}
		return &cp
	}
	return &domain.Error{
		Stage:       stage,
		Slot:        l.slot.Name,
		Fragment:    l.fragment,
		Level:       domain.LevelError,
		Code:        code,
		Recoverable: true,
		Err:         err,
	}
}
