package runtime

import (
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
)

// StateContext holds the State of the current tick.
// It is passed by reference to every lifecycle; the state it holds is replaced
// on each state change and never mutated in place.
type StateContext struct {
	mu    sync.RWMutex
	state *domain.State
}

// State returns the current state. It may be nil before the first state change.
func (c *StateContext) State() *domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Route returns the route of the current state, or "".
func (c *StateContext) Route() string {
	if s := c.State(); s != nil {
		return s.Route
	}
	return ""
}

func (c *StateContext) replace(next *domain.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next
}
