package domain

import (
	"errors"
	"fmt"
	"time"
)

// Manifest is the complete configuration of an engine instance.
type Manifest struct {
	// ImportTimeout bounds script loads and element lookups. Zero means the engine default.
	ImportTimeout time.Duration

	Routes    []Route
	Slots     []Slot
	Fragments []Fragment
}

// Route looks up a route by name.
func (m *Manifest) Route(name string) (Route, bool) {
	for _, r := range m.Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Slot looks up a slot by name.
func (m *Manifest) Slot(name string) (Slot, bool) {
	for _, s := range m.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// Fragment looks up a fragment by name.
func (m *Manifest) Fragment(name string) (Fragment, bool) {
	for _, f := range m.Fragments {
		if f.Name == name {
			return f, true
		}
	}
	return Fragment{}, false
}

// Validate checks referential integrity and returns every violation joined.
// Each violation is a non-recoverable *Error.
func (m *Manifest) Validate() error {
	var errs []error

	slots := make(map[string]bool, len(m.Slots))
	for _, s := range m.Slots {
		if s.Name == "" {
			errs = append(errs, ConfigError(CodeInvalidSlots, "slot without a name"))
			continue
		}
		if slots[s.Name] {
			errs = append(errs, ConfigError(CodeInvalidSlots, "duplicate slot %q", s.Name))
		}
		slots[s.Name] = true
	}

	fragments := make(map[string]bool, len(m.Fragments))
	for _, f := range m.Fragments {
		if f.Name == "" {
			errs = append(errs, ConfigError(CodeMissingFragment, "fragment without a name"))
			continue
		}
		if fragments[f.Name] {
			errs = append(errs, ConfigError(CodeInvalidMap, "duplicate fragment %q", f.Name))
		}
		fragments[f.Name] = true
		for _, s := range f.Slots {
			if !slots[s] {
				errs = append(errs, ConfigError(CodeInvalidSlots, "fragment %q references undeclared slot %q", f.Name, s))
			}
		}
	}

	routes := make(map[string]bool, len(m.Routes))
	for _, r := range m.Routes {
		if r.Name == "" {
			errs = append(errs, ConfigError(CodeMissingRoute, "route without a name"))
			continue
		}
		if routes[r.Name] {
			errs = append(errs, ConfigError(CodeInvalidMap, "duplicate route %q", r.Name))
		}
		routes[r.Name] = true

		explicit := make(map[string]string)
		for _, ref := range r.Fragments {
			if !fragments[ref.Name] {
				errs = append(errs, ConfigError(CodeMissingFragment, "route %q references undeclared fragment %q", r.Name, ref.Name))
				continue
			}
			if ref.Slot == "" {
				continue
			}
			if !slots[ref.Slot] {
				errs = append(errs, ConfigError(CodeInvalidSlots, "route %q places %q in undeclared slot %q", r.Name, ref.Name, ref.Slot))
				continue
			}
			if other, taken := explicit[ref.Slot]; taken {
				errs = append(errs, ConfigError(CodeInvalidMap, "route %q places both %q and %q in slot %q", r.Name, other, ref.Name, ref.Slot))
			}
			explicit[ref.Slot] = ref.Name
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid manifest: %w", errors.Join(errs...))
}
