package placement_test

import (
	"testing"

	"github.com/aretw0/tessera/pkg/placement"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func free(slots ...string) map[string]bool {
	m := make(map[string]bool, len(slots))
	for _, s := range slots {
		m[s] = true
	}
	return m
}

func TestPlace(t *testing.T) {
	tests := []struct {
		name       string
		empty      map[string]bool
		candidates []ports.Candidate
		want       map[string]string
	}{
		{
			name:       "single fragment takes its first free slot",
			empty:      free("MAIN", "SIDE"),
			candidates: []ports.Candidate{{Fragment: "A", Slots: []string{"MAIN", "SIDE"}}},
			want:       map[string]string{"MAIN": "A"},
		},
		{
			name:  "maximizes placed fragments",
			empty: free("MAIN", "SIDE"),
			candidates: []ports.Candidate{
				{Fragment: "A", Slots: []string{"MAIN", "SIDE"}},
				{Fragment: "B", Slots: []string{"MAIN"}},
			},
			want: map[string]string{"MAIN": "B", "SIDE": "A"},
		},
		{
			name:  "single candidate wins a tie",
			empty: free("MAIN"),
			candidates: []ports.Candidate{
				{Fragment: "A", Slots: []string{"MAIN", "SIDE"}},
				{Fragment: "B", Slots: []string{"MAIN"}},
			},
			want: map[string]string{"MAIN": "B"},
		},
		{
			name:  "input order breaks remaining ties",
			empty: free("MAIN"),
			candidates: []ports.Candidate{
				{Fragment: "A", Slots: []string{"MAIN"}},
				{Fragment: "B", Slots: []string{"MAIN"}},
			},
			want: map[string]string{"MAIN": "A"},
		},
		{
			name:  "occupied slots are ignored",
			empty: map[string]bool{"MAIN": false, "SIDE": true},
			candidates: []ports.Candidate{
				{Fragment: "A", Slots: []string{"MAIN", "SIDE"}},
			},
			want: map[string]string{"SIDE": "A"},
		},
		{
			name:       "nothing fits",
			empty:      map[string]bool{"MAIN": false},
			candidates: []ports.Candidate{{Fragment: "A", Slots: []string{"MAIN"}}},
			want:       map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := placement.Place(tt.empty, tt.candidates)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlace_DoesNotMutateInput(t *testing.T) {
	empty := free("MAIN")
	candidates := []ports.Candidate{{Fragment: "A", Slots: []string{"MAIN"}}}

	_ = placement.Placer{}.Place(empty, candidates)

	assert.True(t, empty["MAIN"])
	assert.Equal(t, []string{"MAIN"}, candidates[0].Slots)
}
