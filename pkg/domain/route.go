package domain

import "context"

// FragmentRef places a fragment on a route.
// An empty Slot asks the slot placer to pick one of the fragment's candidate slots.
type FragmentRef struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Slot string `json:"slot,omitempty" yaml:"slot,omitempty" mapstructure:"slot"`
}

// Route is a named page. Identity is the name; routes are immutable once loaded.
type Route struct {
	Name      string        `json:"name" yaml:"name"`
	Path      string        `json:"path,omitempty" yaml:"path,omitempty"`
	Paths     []string      `json:"paths,omitempty" yaml:"paths,omitempty"`
	Fragments []FragmentRef `json:"fragments" yaml:"fragments"`
}

// AllPaths returns Path followed by Paths, skipping empty entries.
func (r Route) AllPaths() []string {
	out := make([]string, 0, len(r.Paths)+1)
	if r.Path != "" {
		out = append(out, r.Path)
	}
	for _, p := range r.Paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FragmentNames returns the names of the fragments the route wants mounted, in order.
func (r Route) FragmentNames() []string {
	out := make([]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		out = append(out, f.Name)
	}
	return out
}

// Slot is a named mount point.
type Slot struct {
	Name string `json:"name" yaml:"name"`

	// Selector is handed to the ElementProvider. Defaults to "#<name>".
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`

	// ErrorMarkup and LoadingMarkup are fallback content providers, only used
	// when no mounted script can render the error or loading state itself.
	ErrorMarkup   func(err error) string `json:"-" yaml:"-"`
	LoadingMarkup func() string          `json:"-" yaml:"-"`
}

// QuerySelector returns the selector used to look up the slot element.
func (s Slot) QuerySelector() string {
	if s.Selector != "" {
		return s.Selector
	}
	return "#" + s.Name
}

// LoadScript produces the script of a fragment given the current shared state.
type LoadScript func(ctx context.Context, state *State) (Script, error)

// Fragment is config data: it has no lifecycle of its own.
type Fragment struct {
	Name string `json:"name" yaml:"name"`

	// Slots lists the candidate slots the fragment may occupy.
	Slots []string `json:"slots" yaml:"slots"`

	// LoadScript is nil for unmanaged fragments (navigation is treated as an external link).
	LoadScript LoadScript `json:"-" yaml:"-"`
}

// Script is the raw object returned by LoadScript.
// Version selects its calling convention (3 to 6).
type Script interface {
	Version() int
}

// Element is a host-owned mount target.
type Element interface {
	// Selector identifies the element inside its container.
	Selector() string
	// SetContent replaces the markup of the element.
	SetContent(markup string)
	// Content returns the current markup of the element.
	Content() string
}
