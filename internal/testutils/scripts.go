package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
)

// Calls counts the lifecycle calls a RecordingScript received.
type Calls struct {
	Loads         int
	Hydrate       int
	Render        int
	Unmount       int
	OnStateChange int
	Statuses      []domain.Status
	States        []string
}

// RecordingScript is a version 6 script that records every call it receives.
// Fail names the method that returns an error: "hydrate", "render", "update" or "unmount".
type RecordingScript struct {
	Name string
	Fail string
	// Block, when set, is received from before Render and OnStateChange return.
	Block chan struct{}

	mu    sync.Mutex
	calls Calls
}

// NewRecordingScript creates a recorder for fragment name.
func NewRecordingScript(name string) *RecordingScript {
	return &RecordingScript{Name: name}
}

// Calls returns a copy of the recorded calls.
func (s *RecordingScript) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.calls
	c.Statuses = append([]domain.Status(nil), s.calls.Statuses...)
	c.States = append([]string(nil), s.calls.States...)
	return c
}

// Loader returns a LoadScript handing out s and counting loads.
func (s *RecordingScript) Loader() domain.LoadScript {
	return func(ctx context.Context, state *domain.State) (domain.Script, error) {
		s.mu.Lock()
		s.calls.Loads++
		s.mu.Unlock()
		return s, nil
	}
}

func (s *RecordingScript) Version() int { return 6 }

func (s *RecordingScript) Hydrate(ctx context.Context, el domain.Element, state *domain.State) error {
	s.record(func(c *Calls) { c.Hydrate++ }, state)
	if s.Fail == "hydrate" {
		return errors.New("hydrate failed")
	}
	el.SetContent(s.Name)
	return nil
}

func (s *RecordingScript) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	s.wait(ctx)
	s.record(func(c *Calls) { c.Render++ }, state)
	if s.Fail == "render" {
		return errors.New("render failed")
	}
	el.SetContent(s.Name)
	return nil
}

func (s *RecordingScript) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	s.record(func(c *Calls) { c.Unmount++ }, state)
	if s.Fail == "unmount" {
		return errors.New("unmount failed")
	}
	el.SetContent("")
	return nil
}

func (s *RecordingScript) OnStateChange(ctx context.Context, state *domain.State) error {
	s.wait(ctx)
	s.record(func(c *Calls) { c.OnStateChange++ }, state)
	if s.Fail == "update" {
		return errors.New("update failed")
	}
	return nil
}

func (s *RecordingScript) OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state *domain.State) error {
	s.mu.Lock()
	s.calls.Statuses = append(s.calls.Statuses, details.Status)
	s.mu.Unlock()
	return nil
}

func (s *RecordingScript) wait(ctx context.Context) {
	if s.Block == nil {
		return
	}
	select {
	case <-s.Block:
	case <-ctx.Done():
	}
}

func (s *RecordingScript) record(fn func(*Calls), state *domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.calls)
	if state != nil {
		s.calls.States = append(s.calls.States, state.Resource)
	}
}
