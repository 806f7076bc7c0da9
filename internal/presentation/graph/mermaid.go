package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
)

// Overlay contains editor state to highlight on the graph.
type Overlay struct {
	// Invalid marks nodes involved in validation problems (e.g. cycles).
	Invalid  []string
	Selected string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a workflow graph.
// It applies semantic styling:
// - Entry (no incoming edge): ((Circle))
// - Node with async properties: [[Subroutine]]
// - Default: [Rectangle]
// Nodes are labelled with their display name and type.
func GenerateMermaid(g domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	incoming := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		incoming[e.Target] = true
	}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case !incoming[node.ID]:
			opener, closer = "((", "))"
		case hasAsync(node):
			opener, closer = "[[", "]]"
		}

		label := escapeLabel(node.DisplayName())
		if node.Type != "" {
			label = fmt.Sprintf("%s <br/> <i>%s</i>", label, escapeLabel(node.Type))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if handles := edgeLabel(e); handles != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", handles)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Invalid {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s invalid;\n", safeID)
			}
		}

		if overlay.Selected != "" {
			fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(overlay.Selected))
		}
	}

	return sb.String()
}

func hasAsync(node *domain.Node) bool {
	v := node.ActiveVersion()
	if v == nil {
		return false
	}
	var walk func(props []domain.Property) bool
	walk = func(props []domain.Property) bool {
		for i := range props {
			if props[i].IsAsync() || walk(props[i].Collection) {
				return true
			}
		}
		return false
	}
	return walk(v.Properties)
}

func edgeLabel(e domain.Edge) string {
	switch {
	case e.SourceHandle != "" && e.TargetHandle != "":
		return escapeLabel(e.SourceHandle + " → " + e.TargetHandle)
	case e.SourceHandle != "":
		return escapeLabel(e.SourceHandle)
	case e.TargetHandle != "":
		return escapeLabel(e.TargetHandle)
	}
	return ""
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
