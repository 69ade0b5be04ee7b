package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/google/uuid"
)

// Page is a composed page owned by one session. *tessera.Engine implements it.
type Page interface {
	Start(ctx context.Context, container domain.Element, change domain.Change) (bool, error)
	Navigate(ctx context.Context, change domain.Change) (bool, error)
	Unmount(ctx context.Context, container domain.Element, state *domain.State) error
	Rendered() bool
	State() *domain.State
	Snapshot() []domain.SlotSnapshot
	Status() domain.HostStatusEvent
}

// Factory builds the page of a session and the container it renders into.
type Factory func(ctx context.Context, sessionID string) (Page, domain.Element, error)

// ErrUnknownSession is returned for sessions without a live page.
var ErrUnknownSession = errors.New("unknown session")

type hosted struct {
	page      Page
	container domain.Element
}

// Result describes a navigation served by a Host.
type Result struct {
	SessionID string
	// Managed is false when the resource belongs to no route of the page.
	Managed bool
	State   *domain.State
	Slots   []domain.SlotSnapshot
	Status  domain.HostStatusEvent
	// Container is the element the page renders into.
	Container domain.Element
}

// Host keeps one live page per session. Navigations of a session are
// serialized through the Manager lock, and the resulting state is saved to its
// store so a session can be rebuilt by another replica.
type Host struct {
	manager *Manager
	factory Factory

	mu    sync.Mutex
	pages map[string]*hosted
}

// NewHost creates a host building pages with factory.
func NewHost(manager *Manager, factory Factory) *Host {
	return &Host{
		manager: manager,
		factory: factory,
		pages:   make(map[string]*hosted),
	}
}

// NewSessionID returns a random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// Navigate applies change to the page of sessionID, creating the page on first
// use. An empty sessionID starts a new session. A new page whose change has no
// resource resumes from the stored state.
func (h *Host) Navigate(ctx context.Context, sessionID string, change domain.Change) (Result, error) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	res := Result{SessionID: sessionID}

	err := h.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		p, err := h.page(ctx, sessionID)
		if err != nil {
			return err
		}

		var managed bool
		if !p.page.Rendered() {
			if change.Resource == "" {
				if change, err = h.manager.resume(ctx, sessionID, ""); err != nil {
					return err
				}
			}
			managed, err = p.page.Start(ctx, p.container, change)
		} else {
			managed, err = p.page.Navigate(ctx, change)
		}

		res.Managed = managed
		res.State = p.page.State()
		res.Slots = p.page.Snapshot()
		res.Status = p.page.Status()
		res.Container = p.container

		if res.State != nil {
			if saveErr := h.manager.store.Save(ctx, sessionID, res.State); saveErr != nil {
				return errors.Join(err, fmt.Errorf("failed to save session: %w", saveErr))
			}
		}
		return err
	})
	return res, err
}

// Inspect returns the current page of sessionID without changing it.
func (h *Host) Inspect(sessionID string) (Result, error) {
	h.mu.Lock()
	p, ok := h.pages[sessionID]
	h.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return Result{
		SessionID: sessionID,
		Managed:   true,
		State:     p.page.State(),
		Slots:     p.page.Snapshot(),
		Status:    p.page.Status(),
		Container: p.container,
	}, nil
}

// Sessions returns the IDs of the live pages in lexical order.
func (h *Host) Sessions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.pages))
	for id := range h.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close unmounts the page of sessionID and forgets the session.
func (h *Host) Close(ctx context.Context, sessionID string) error {
	return h.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		h.mu.Lock()
		p, ok := h.pages[sessionID]
		delete(h.pages, sessionID)
		h.mu.Unlock()

		var errs []error
		if ok {
			errs = append(errs, p.page.Unmount(ctx, p.container, p.page.State()))
		}
		errs = append(errs, h.manager.store.Delete(ctx, sessionID))
		return errors.Join(errs...)
	})
}

// Evict unmounts the page of sessionID but keeps its stored state, so the next
// navigation rebuilds the page from the store.
func (h *Host) Evict(ctx context.Context, sessionID string) error {
	return h.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		h.mu.Lock()
		p, ok := h.pages[sessionID]
		delete(h.pages, sessionID)
		h.mu.Unlock()
		if !ok {
			return nil
		}
		return p.page.Unmount(ctx, p.container, p.page.State())
	})
}

func (h *Host) page(ctx context.Context, sessionID string) (*hosted, error) {
	h.mu.Lock()
	p, ok := h.pages[sessionID]
	h.mu.Unlock()
	if ok {
		return p, nil
	}

	page, container, err := h.factory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	p = &hosted{page: page, container: container}

	h.mu.Lock()
	h.pages[sessionID] = p
	h.mu.Unlock()
	return p, nil
}
