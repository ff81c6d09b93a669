package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/wayfarer/pkg/flow"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// Options tune the rendering.
type Options struct {
	// Inputs are nodes that pause for user input; drawn as parallelograms.
	Inputs  []string
	Overlay *GraphOverlay
}

// GenerateMermaid produces a Mermaid flowchart for g.
// Shapes:
// - Start: ((Circle))
// - Batch: [[Subroutine]]
// - Input: [/Parallelogram/]
// - Default: [Rectangle]
// Non-default actions label their edges.
func GenerateMermaid(g *flow.Graph, opts Options) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	inputs := make(map[string]bool, len(opts.Inputs))
	for _, name := range opts.Inputs {
		inputs[name] = true
	}

	for _, v := range g.Vertices() {
		name := v.Name()
		opener, closer := "[", "]"
		switch {
		case name == g.Start():
			opener, closer = "((", "))"
		case v.Kind() == flow.KindBatch:
			opener, closer = "[[", "]]"
		case inputs[name]:
			opener, closer = "[/", "/]"
		}

		label := name
		if n := v.MaxRetries(); n > 0 {
			label = fmt.Sprintf("%s <br/> retries: %d", name, n)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(name), opener, label, closer)
	}

	for _, e := range g.Edges() {
		arrow := "-->"
		if e.Action != flow.DefaultAction {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(e.Action, "\"", "'"))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay := opts.Overlay; overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(name)
			if safeID == "" || seen[safeID] {
				continue
			}
			if _, ok := g.Vertex(name); !ok {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
