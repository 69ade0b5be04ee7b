package domain

import (
	"context"
	"time"
)

// SlotStatusEvent is emitted every time a slot broadcasts a status.
type SlotStatusEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Slot      string        `json:"slot"`
	Fragment  string        `json:"fragment"`
	Details   StatusDetails `json:"details"`
}

// PhaseEvent is emitted when a lifecycle enters a new phase.
type PhaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Slot      string    `json:"slot"`
	Fragment  string    `json:"fragment"`
	Phase     string    `json:"phase"`
}

// ScriptLoadEvent is emitted after a loader ran (never for cache hits).
type ScriptLoadEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Fragment  string        `json:"fragment"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// StateChangeEvent is emitted after a state change was applied.
type StateChangeEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	State     *State        `json:"state"`
	Mounted   bool          `json:"mounted"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// SlotReleasedEvent is emitted when a slot no longer holds a fragment and the
// current route does not place one there either.
type SlotReleasedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Slot      string    `json:"slot"`
	Fragment  string    `json:"fragment"`
}

// HostStatusEvent is the page-level status surfaced to the host.
type HostStatusEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Details   StatusDetails `json:"details"`
	// Slots holds the per-slot statuses the aggregate was computed from.
	Slots map[string]Status `json:"slots,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStatus       func(context.Context, *SlotStatusEvent)
	OnPhase        func(context.Context, *PhaseEvent)
	OnScriptLoad   func(context.Context, *ScriptLoadEvent)
	OnStateChange  func(context.Context, *StateChangeEvent)
	OnStateDropped func(context.Context, Change)
	OnSlotReleased func(context.Context, *SlotReleasedEvent)
}

// Merge returns hooks calling h first, then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStatus:       chain(h.OnStatus, other.OnStatus),
		OnPhase:        chain(h.OnPhase, other.OnPhase),
		OnScriptLoad:   chain(h.OnScriptLoad, other.OnScriptLoad),
		OnStateChange:  chain(h.OnStateChange, other.OnStateChange),
		OnStateDropped: chain(h.OnStateDropped, other.OnStateDropped),
		OnSlotReleased: chain(h.OnSlotReleased, other.OnSlotReleased),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
