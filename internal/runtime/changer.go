package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
)

// Mode tells Apply how a change reaches the page.
type Mode struct {
	// Initial marks the first render after an attach. It reports the change
	// as mounted even when no fragment of the route is managed.
	Initial bool
	// Hydrate mounts new fragments with Hydrate instead of Render, for
	// containers that already hold their markup.
	Hydrate bool
}

// ApplyFunc applies one state change.
type ApplyFunc func(ctx context.Context, change domain.Change, mode Mode) (bool, error)

type request struct {
	change domain.Change
	mode   Mode
}

// StateChanger serializes state changes with at most one queued behind the
// running one. A change submitted while the queue slot is occupied replaces the
// queued change, which is dropped without ever being applied.
type StateChanger struct {
	apply  ApplyFunc
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu      sync.Mutex
	running bool
	pending *request
	idle    chan struct{}
	mounted bool
	lastErr error
}

// NewStateChanger creates a changer draining into apply.
func NewStateChanger(apply ApplyFunc, logger *slog.Logger, hooks domain.LifecycleHooks) *StateChanger {
	if logger == nil {
		logger = logging.NewNop()
	}
	idle := make(chan struct{})
	close(idle)
	return &StateChanger{
		apply:  apply,
		logger: logger,
		hooks:  hooks,
		idle:   idle,
	}
}

// Submit schedules change. It never blocks on the change itself.
// The drain loop outlives ctx cancellation but keeps its values.
func (c *StateChanger) Submit(ctx context.Context, change domain.Change, mode Mode) {
	req := request{change: change, mode: mode}

	c.mu.Lock()
	if c.running {
		dropped := c.pending
		c.pending = &req
		c.mu.Unlock()
		if dropped != nil {
			c.logger.DebugContext(ctx, "state change superseded", "resource", dropped.change.Resource)
			if c.hooks.OnStateDropped != nil {
				c.hooks.OnStateDropped(ctx, dropped.change)
			}
		}
		return
	}
	c.running = true
	c.idle = make(chan struct{})
	c.mu.Unlock()

	go c.drain(context.WithoutCancel(ctx), req)
}

func (c *StateChanger) drain(ctx context.Context, req request) {
	for {
		mounted, err := c.apply(ctx, req.change, req.mode)

		c.mu.Lock()
		c.mounted, c.lastErr = mounted, err
		if c.pending != nil {
			req = *c.pending
			c.pending = nil
			c.mu.Unlock()
			continue
		}
		c.running = false
		close(c.idle)
		c.mu.Unlock()
		return
	}
}

// Wait blocks until no change is running or queued and returns the result of
// the last applied change.
func (c *StateChanger) Wait(ctx context.Context) (bool, error) {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted, c.lastErr
}

// Busy reports whether a change is running.
func (c *StateChanger) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
