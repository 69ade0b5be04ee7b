package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tessera/internal/presentation/graph"
	"github.com/aretw0/tessera/pkg/domain"
)

func loader(ctx context.Context, state *domain.State) (domain.Script, error) { return nil, nil }

func manifest() *domain.Manifest {
	return &domain.Manifest{
		Slots: []domain.Slot{{Name: "main"}, {Name: "side-bar"}},
		Fragments: []domain.Fragment{
			{Name: "home", Slots: []string{"main"}, LoadScript: loader},
			{Name: "ads", Slots: []string{"side-bar"}},
		},
		Routes: []domain.Route{
			{Name: "home", Path: "/", Fragments: []domain.FragmentRef{{Name: "home"}, {Name: "ads"}}},
			{Name: "broken", Fragments: []domain.FragmentRef{{Name: "home", Slot: "main"}, {Name: "ads", Slot: "main"}}},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes",
			contains: []string{
				`s_main[("main")]`,
				`s_side_bar[("side-bar")]`,
				`f_home["home"]`,
				`f_ads[/"ads"/]`,
				`r_home(["home <br/> /"])`,
			},
		},
		{
			name: "Placement Edges",
			contains: []string{
				`r_home -- "main" --> f_home`,
				`r_home -- "side-bar" --> f_ads`,
				`f_home -.- s_main`,
			},
		},
		{
			name: "Unplaceable Route",
			contains: []string{
				`r_broken -- "?" --> f_home`,
				`r_broken -- "?" --> f_ads`,
			},
		},
		{
			name: "Overlay",
			overlay: &graph.GraphOverlay{
				CurrentRoute: "home",
				MountedSlots: map[string]string{"main": "home"},
				FailedSlots:  []string{"side-bar"},
			},
			contains: []string{
				"class r_home current;",
				"class s_main mounted;",
				"class f_home mounted;",
				"class s_side_bar failed;",
			},
		},
		{
			name:     "No Overlay",
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(manifest(), tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() missing %q\nGot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() should not contain %q\nGot:\n%s", unwanted, got)
				}
			}
		})
	}
}
