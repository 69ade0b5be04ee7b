package memory

import (
	"slices"
	"sync"

	"github.com/aretw0/tessera/pkg/ports"
)

// History is an in-memory navigation stack.
type History struct {
	mu        sync.Mutex
	entries   []string
	listeners []func(path string)
}

var _ ports.History = (*History)(nil)

// NewHistory creates a history positioned at initial.
func NewHistory(initial string) *History {
	return &History{entries: []string{initial}}
}

// Push appends path and notifies listeners.
func (h *History) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(path)
	}
}

// Replace overwrites the current entry and notifies listeners.
func (h *History) Replace(path string) {
	h.mu.Lock()
	h.entries[len(h.entries)-1] = path
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(path)
	}
}

// Location returns the current entry.
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Back pops the current entry and returns the new location. The first entry is never popped.
func (h *History) Back() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the stack.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries)
}

// Listen registers fn to be called after every Push or Replace.
func (h *History) Listen(fn func(path string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}
