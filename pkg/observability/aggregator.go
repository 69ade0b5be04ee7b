package observability

import (
	"maps"
	"sync"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
)

// StatusAggregator combines the statuses of every slot into a single view.
// Any slot in ERROR makes the page ERROR; otherwise any slot LOADING makes it LOADING.
type StatusAggregator struct {
	mu      sync.Mutex
	slots   map[string]domain.Status
	errors  map[string]domain.StatusDetails
	current domain.StatusDetails
}

// NewStatusAggregator creates an aggregator in the DEFAULT status.
func NewStatusAggregator() *StatusAggregator {
	return &StatusAggregator{
		slots:   make(map[string]domain.Status),
		errors:  make(map[string]domain.StatusDetails),
		current: domain.Ready(),
	}
}

// Observe records a slot status. It returns the host event and true when the
// aggregated status changed.
func (a *StatusAggregator) Observe(e *domain.SlotStatusEvent) (domain.HostStatusEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.slots[e.Slot] = e.Details.Status
	if e.Details.Status == domain.StatusError {
		a.errors[e.Slot] = e.Details
	} else {
		delete(a.errors, e.Slot)
	}

	return a.update()
}

func (a *StatusAggregator) update() (domain.HostStatusEvent, bool) {
	next := a.aggregate()
	if next == a.current {
		return domain.HostStatusEvent{}, false
	}
	a.current = next
	return domain.HostStatusEvent{
		Timestamp: time.Now(),
		Details:   next,
		Slots:     maps.Clone(a.slots),
	}, true
}

// Forget drops a slot, as when its fragment is gone for good. Like Observe, it
// returns the host event and true when the aggregated status changed.
func (a *StatusAggregator) Forget(slot string) (domain.HostStatusEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.slots, slot)
	delete(a.errors, slot)
	return a.update()
}

// Current returns the aggregated status.
func (a *StatusAggregator) Current() domain.HostStatusEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.HostStatusEvent{
		Timestamp: time.Now(),
		Details:   a.current,
		Slots:     maps.Clone(a.slots),
	}
}

func (a *StatusAggregator) aggregate() domain.StatusDetails {
	var worst domain.StatusDetails
	found := false
	for _, d := range a.errors {
		if !found || rank(d.Level) > rank(worst.Level) {
			worst, found = d, true
		}
	}
	if found {
		return worst
	}
	for _, s := range a.slots {
		if s == domain.StatusLoading {
			return domain.Loading()
		}
	}
	return domain.Ready()
}

func rank(l domain.Level) int {
	switch l {
	case domain.LevelFatal:
		return 3
	case domain.LevelError:
		return 2
	case domain.LevelWarning:
		return 1
	}
	return 0
}
