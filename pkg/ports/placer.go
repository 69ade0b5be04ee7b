package ports

// Candidate is a fragment waiting for auto-placement with its candidate slots, in preference order.
type Candidate struct {
	Fragment string
	Slots    []string
}

// SlotPlacer assigns candidates to empty slots. It must be pure.
// empty maps every slot name to whether it is still free; the result maps slot to fragment.
type SlotPlacer interface {
	Place(empty map[string]bool, candidates []Candidate) map[string]string
}

// SlotPlacerFunc adapts a function to SlotPlacer.
type SlotPlacerFunc func(empty map[string]bool, candidates []Candidate) map[string]string

func (f SlotPlacerFunc) Place(empty map[string]bool, candidates []Candidate) map[string]string {
	return f(empty, candidates)
}
