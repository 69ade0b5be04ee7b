package runtime

import (
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/placement"
	"github.com/aretw0/tessera/pkg/ports"
)

// Diff maps slot names to fragment names for each kind of transition.
type Diff struct {
	Mount   map[string]string
	Update  map[string]string
	Unmount map[string]string
}

// Empty reports whether the diff touches no slot.
func (d Diff) Empty() bool {
	return len(d.Mount) == 0 && len(d.Update) == 0 && len(d.Unmount) == 0
}

// Reconciler computes slot diffs between routes.
// Placements are pure functions of the manifest and are cached per route.
type Reconciler struct {
	manifest *domain.Manifest
	placer   ports.SlotPlacer

	mu    sync.Mutex
	cache map[string]map[string]string
}

// NewReconciler creates a reconciler. A nil placer selects placement.Placer.
func NewReconciler(manifest *domain.Manifest, placer ports.SlotPlacer) *Reconciler {
	if placer == nil {
		placer = placement.Placer{}
	}
	return &Reconciler{
		manifest: manifest,
		placer:   placer,
		cache:    make(map[string]map[string]string),
	}
}

// Reconcile returns the transitions leading from oldRoute to newRoute.
// An empty oldRoute is the first render: every filled slot is mounted.
func (r *Reconciler) Reconcile(newRoute, oldRoute string) (Diff, error) {
	diff := Diff{
		Mount:   make(map[string]string),
		Update:  make(map[string]string),
		Unmount: make(map[string]string),
	}

	next, err := r.Placement(newRoute)
	if err != nil {
		return diff, err
	}
	if oldRoute == "" {
		for slot, f := range next {
			diff.Mount[slot] = f
		}
		return diff, nil
	}
	prev, err := r.Placement(oldRoute)
	if err != nil {
		return diff, err
	}

	for slot, f := range prev {
		if nf, ok := next[slot]; ok && nf == f {
			diff.Update[slot] = f
			continue
		}
		diff.Unmount[slot] = f
	}
	for slot, f := range next {
		if pf, ok := prev[slot]; !ok || pf != f {
			diff.Mount[slot] = f
		}
	}
	return diff, nil
}

// Placement returns the slot to fragment map of a route.
// The returned map is shared and must not be modified.
func (r *Reconciler) Placement(routeName string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache[routeName]; ok {
		return p, nil
	}
	p, err := r.place(routeName)
	if err != nil {
		return nil, err
	}
	r.cache[routeName] = p
	return p, nil
}

func (r *Reconciler) place(routeName string) (map[string]string, error) {
	route, ok := r.manifest.Route(routeName)
	if !ok {
		return nil, domain.ConfigError(domain.CodeMissingRoute, "route %q is not declared", routeName)
	}

	out := make(map[string]string)
	var auto []ports.Candidate
	for _, ref := range route.Fragments {
		f, ok := r.manifest.Fragment(ref.Name)
		if !ok {
			return nil, domain.ConfigError(domain.CodeMissingFragment, "route %q references undeclared fragment %q", route.Name, ref.Name)
		}
		if ref.Slot != "" {
			if _, ok := r.manifest.Slot(ref.Slot); !ok {
				return nil, domain.ConfigError(domain.CodeInvalidSlots, "route %q places %q in undeclared slot %q", route.Name, f.Name, ref.Slot)
			}
			if other, taken := out[ref.Slot]; taken {
				return nil, domain.ConfigError(domain.CodeInvalidMap, "route %q places both %q and %q in slot %q", route.Name, other, f.Name, ref.Slot)
			}
			out[ref.Slot] = f.Name
			continue
		}
		if len(f.Slots) == 0 {
			return nil, domain.ConfigError(domain.CodeInvalidSlots, "fragment %q has no candidate slots", f.Name)
		}
		for _, s := range f.Slots {
			if _, ok := r.manifest.Slot(s); !ok {
				return nil, domain.ConfigError(domain.CodeInvalidSlots, "fragment %q references undeclared slot %q", f.Name, s)
			}
		}
		auto = append(auto, ports.Candidate{Fragment: f.Name, Slots: append([]string(nil), f.Slots...)})
	}
	if len(auto) == 0 {
		return out, nil
	}

	empty := make(map[string]bool, len(r.manifest.Slots))
	for _, s := range r.manifest.Slots {
		_, taken := out[s.Name]
		empty[s.Name] = !taken
	}
	allowed := make(map[string]map[string]bool, len(auto))
	for _, c := range auto {
		allowed[c.Fragment] = make(map[string]bool, len(c.Slots))
		for _, s := range c.Slots {
			allowed[c.Fragment][s] = true
		}
	}

	placed := make(map[string]bool)
	for slot, f := range r.placer.Place(empty, auto) {
		switch {
		case !empty[slot]:
			return nil, domain.ConfigError(domain.CodeInvalidMap, "placer put %q in occupied or unknown slot %q", f, slot)
		case !allowed[f][slot]:
			return nil, domain.ConfigError(domain.CodeInvalidMap, "placer put %q in slot %q it does not accept", f, slot)
		case placed[f]:
			return nil, domain.ConfigError(domain.CodeInvalidMap, "placer put %q in more than one slot", f)
		}
		placed[f] = true
		out[slot] = f
	}
	return out, nil
}
