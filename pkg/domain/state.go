package domain

// Event tags attached to a State.
const (
	EventInit     = "init"
	EventNavigate = "navigate"
	EventPopState = "popstate"
)

// State is the snapshot of shared context for one tick.
// It is owned by the orchestrator and handed to scripts read-only; every state
// change produces a new State instead of mutating the previous one.
type State struct {
	// Resource is the path (or any opaque resource) that triggered the change.
	Resource string `json:"resource"`

	// Route is the resolved route name; PrevRoute the one it replaces.
	Route     string `json:"route"`
	PrevRoute string `json:"prev_route,omitempty"`

	// Event tags the cause of the change (see Event* constants).
	Event string `json:"event,omitempty"`

	// Extra holds fields injected by the additional-state provider.
	Extra map[string]any `json:"extra,omitempty"`
}

// NewState creates a state for a resource without route information.
func NewState(resource, event string) *State {
	return &State{
		Resource: resource,
		Event:    event,
		Extra:    make(map[string]any),
	}
}

// Snapshot returns a copy of the state with its own Extra map.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Extra = make(map[string]any, len(s.Extra))
	for k, v := range s.Extra {
		next.Extra[k] = v
	}
	return &next
}

// WithExtra returns a copy of the state with extra merged over the existing fields.
func (s *State) WithExtra(extra map[string]any) *State {
	next := s.Snapshot()
	for k, v := range extra {
		next.Extra[k] = v
	}
	return next
}

// Change is a new piece of external state submitted by the host.
type Change struct {
	Resource string         `json:"resource"`
	Event    string         `json:"event,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}
