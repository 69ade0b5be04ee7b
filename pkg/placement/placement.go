// Package placement implements the default slot finder used to auto-assign
// fragments to slots.
//
// Place maximizes the number of simultaneously placed fragments. Among
// placements of equal size, fragments with a single candidate slot win over
// fragments with several, and earlier fragments win over later ones.
package placement

import (
	"sort"

	"github.com/aretw0/tessera/pkg/ports"
)

// Placer is the default ports.SlotPlacer.
type Placer struct{}

var _ ports.SlotPlacer = Placer{}

// Place implements ports.SlotPlacer.
func (Placer) Place(empty map[string]bool, candidates []ports.Candidate) map[string]string {
	return Place(empty, candidates)
}

// Place assigns candidates to free slots. It never mutates its inputs.
func Place(empty map[string]bool, candidates []ports.Candidate) map[string]string {
	order := make([]ports.Candidate, 0, len(candidates))
	single := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		single[c.Fragment] = len(c.Slots) == 1
		slots := make([]string, 0, len(c.Slots))
		for _, s := range c.Slots {
			if empty[s] {
				slots = append(slots, s)
			}
		}
		if len(slots) > 0 {
			order = append(order, ports.Candidate{Fragment: c.Fragment, Slots: slots})
		}
	}
	// Priority follows the declared candidate count, not the free one.
	sort.SliceStable(order, func(i, j int) bool {
		return single[order[i].Fragment] && !single[order[j].Fragment]
	})

	s := &search{
		order: order,
		taken: make(map[string]bool),
		cur:   make([]string, len(order)),
		best:  make([]string, len(order)),
		bestN: -1,
	}
	s.walk(0, 0)

	out := make(map[string]string)
	for i, slot := range s.best {
		if slot != "" {
			out[slot] = order[i].Fragment
		}
	}
	return out
}

// search is a depth-first walk that tries "place" before "skip" for each
// fragment, so the first solution reaching the best size is the preferred one.
type search struct {
	order []ports.Candidate
	taken map[string]bool
	cur   []string
	best  []string
	bestN int
}

func (s *search) walk(i, placed int) {
	if placed+len(s.order)-i <= s.bestN {
		return
	}
	if i == len(s.order) {
		s.bestN = placed
		copy(s.best, s.cur)
		return
	}
	for _, slot := range s.order[i].Slots {
		if s.taken[slot] {
			continue
		}
		s.taken[slot] = true
		s.cur[i] = slot
		s.walk(i+1, placed+1)
		s.cur[i] = ""
		delete(s.taken, slot)
		if s.bestN == len(s.order) {
			return
		}
	}
	s.walk(i+1, placed)
}
