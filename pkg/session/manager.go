package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a page lock.
const DefaultLockTTL = 30 * time.Second

// gate serializes the changes of one page inside this process. It lives only
// while someone holds or waits for it.
type gate struct {
	sync.Mutex
	holders int
}

// Manager serializes the changes of each session page and owns their stored
// states. Pages of different sessions never wait for each other.
type Manager struct {
	store   ports.StateStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	routes  ports.RouteResolver
	logger  *slog.Logger

	mu    sync.Mutex
	gates map[string]*gate
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker serializes pages across replicas sharing the store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.lockTTL = ttl }
}

// WithRoutes checks restored resources against the routes of the current
// manifest. A stored resource no route manages any more is not restored.
func WithRoutes(routes ports.RouteResolver) Option {
	return func(m *Manager) { m.routes = routes }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a manager keeping page states in store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		gates:   make(map[string]*gate),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LockKey is the distributed lock key of the page of sessionID.
func LockKey(sessionID string) string {
	return "page/" + sessionID
}

// WithLock runs fn while holding the page of sessionID: first the local gate,
// then the distributed lock when one is configured.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	g := m.enter(sessionID)
	g.Lock()
	defer m.leave(sessionID, g)

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, LockKey(sessionID), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock page %s: %w", sessionID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("page lock not released, it expires with its TTL",
					"session_id", sessionID, "ttl", m.lockTTL, "err", err)
			}
		}()
	}
	return fn(ctx)
}

func (m *Manager) enter(sessionID string) *gate {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gates[sessionID]
	if !ok {
		g = &gate{}
		m.gates[sessionID] = g
	}
	g.holders++
	return g
}

func (m *Manager) leave(sessionID string, g *gate) {
	g.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.holders--; g.holders == 0 {
		delete(m.gates, sessionID)
	}
}

// Resume returns the change that rebuilds the page of sessionID: its stored
// resource and extra fields, or fallback when nothing restorable is stored.
func (m *Manager) Resume(ctx context.Context, sessionID, fallback string) (domain.Change, error) {
	var change domain.Change
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		change, err = m.resume(ctx, sessionID, fallback)
		return err
	})
	return change, err
}

// resume is Resume for callers already holding the page.
func (m *Manager) resume(ctx context.Context, sessionID, fallback string) (domain.Change, error) {
	if fallback == "" {
		fallback = "/"
	}
	start := domain.Change{Resource: fallback, Event: domain.EventInit}

	stored, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return start, nil
	}
	if err != nil {
		return domain.Change{}, fmt.Errorf("failed to restore session: %w", err)
	}
	if stored.Resource == "" || !m.routable(ctx, stored.Resource) {
		m.logger.InfoContext(ctx, "stored resource not restorable",
			"session_id", sessionID, "resource", stored.Resource, "fallback", fallback)
		return start, nil
	}
	return domain.Change{Resource: stored.Resource, Event: domain.EventInit, Extra: stored.Extra}, nil
}

func (m *Manager) routable(ctx context.Context, resource string) bool {
	if m.routes == nil {
		return true
	}
	name, err := m.routes.RouteNameFromResource(ctx, resource)
	return err == nil && name != ""
}

// Load returns the stored state of sessionID.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		return err
	})
	return state, err
}

// Save stores the state of sessionID.
func (m *Manager) Save(ctx context.Context, sessionID string, state *domain.State) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, state)
	})
}

// Delete removes the stored state of sessionID.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List returns the stored session IDs.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
