package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tessera/internal/runtime"
	"github.com/aretw0/tessera/pkg/domain"
)

// GraphOverlay contains live page data to visualize on the graph.
type GraphOverlay struct {
	CurrentRoute string
	// MountedSlots maps slot names to the fragment mounted in them.
	MountedSlots map[string]string
	FailedSlots  []string
}

// GenerateMermaid produces a Mermaid flowchart of a manifest.
// It applies semantic styling:
// - Route: ([Stadium])
// - Fragment: [Rectangle], or [/Parallelogram/] when it has no script
// - Slot: [(Cylinder)]
// Edges go from routes to fragments (labelled with the placed slot) and from
// fragments to their candidate slots. Overlay styles are applied if provided.
func GenerateMermaid(m *domain.Manifest, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, s := range m.Slots {
		sb.WriteString(fmt.Sprintf("    %s[(\"%s\")]\n", slotID(s.Name), s.Name))
	}
	for _, f := range m.Fragments {
		opener, closer := "[", "]"
		if f.LoadScript == nil {
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", fragmentID(f.Name), opener, f.Name, closer))
		for _, s := range f.Slots {
			sb.WriteString(fmt.Sprintf("    %s -.- %s\n", fragmentID(f.Name), slotID(s)))
		}
	}

	reconciler := runtime.NewReconciler(m, nil)
	for _, r := range m.Routes {
		label := r.Name
		if paths := r.AllPaths(); len(paths) > 0 {
			label = fmt.Sprintf("%s <br/> %s", r.Name, strings.Join(paths, ", "))
		}
		sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", routeID(r.Name), escape(label)))

		placement, err := reconciler.Placement(r.Name)
		if err != nil {
			// Unplaceable routes still show which fragments they reference.
			for _, name := range r.FragmentNames() {
				sb.WriteString(fmt.Sprintf("    %s -- \"?\" --> %s\n", routeID(r.Name), fragmentID(name)))
			}
			continue
		}
		slots := make([]string, 0, len(placement))
		for slot := range placement {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", routeID(r.Name), slot, fragmentID(placement[slot])))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef mounted fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px,color:#000;\n")

		slots := make([]string, 0, len(overlay.MountedSlots))
		for slot := range overlay.MountedSlots {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			sb.WriteString(fmt.Sprintf("    class %s mounted;\n", slotID(slot)))
			sb.WriteString(fmt.Sprintf("    class %s mounted;\n", fragmentID(overlay.MountedSlots[slot])))
		}
		for _, slot := range overlay.FailedSlots {
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", slotID(slot)))
		}
		if overlay.CurrentRoute != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", routeID(overlay.CurrentRoute)))
		}
	}

	return sb.String()
}

func routeID(name string) string    { return "r_" + sanitizeMermaidID(name) }
func fragmentID(name string) string { return "f_" + sanitizeMermaidID(name) }
func slotID(name string) string     { return "s_" + sanitizeMermaidID(name) }

func escape(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
