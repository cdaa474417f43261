package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowboard/pkg/connection"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
)

// Overlay contains editor state to visualize on the graph.
type Overlay struct {
	InvalidNodes []string
	EditingNode  string
}

var shapes = map[domain.NodeKind][2]string{
	domain.KindMessage:       {"[", "]"},
	domain.KindLanguageModel: {"{{", "}}"},
	domain.KindInput:         {"[/", "/]"},
	domain.KindAPILibrary:    {"[[", "]]"},
	domain.KindKnowledgeBase: {"[(", ")]"},
	domain.KindEngine:        {"((", "))"},
}

// GenerateMermaid produces a Mermaid flowchart of a flow. Node shapes follow
// the kind; edges leaving a button are labelled with the button text and
// knowledge-base edges are dotted.
func GenerateMermaid(snap flow.Snapshot, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	buttons := make(map[string]map[string]string, len(snap.Nodes))
	for _, node := range snap.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		shape, ok := shapes[node.Kind]
		if !ok {
			shape = [2]string{"[", "]"}
		}

		label := escapeLabel(node.Label)
		if label == "" {
			label = escapeLabel(node.ID)
		}
		if node.IsMinimized {
			label += " ▾"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s <br/> <i>%s</i>\"%s\n", safeID, shape[0], label, node.Kind, shape[1]))

		if msg, ok := node.Config.(*domain.MessageConfig); ok {
			buttons[node.ID] = buttonLabels(msg)
		}
	}

	for _, e := range snap.Edges {
		arrow := "-->"
		if e.Kind == domain.EdgeKnowledgeBase {
			arrow = "-.->"
		}
		if text, ok := buttons[e.Source][e.SourceHandle]; ok && text != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(text))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef editing fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.InvalidNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s invalid;\n", safeID))
			}
		}
		if overlay.EditingNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s editing;\n", sanitizeMermaidID(overlay.EditingNode)))
		}
	}

	return sb.String()
}

// buttonLabels maps output handle ids to button labels.
func buttonLabels(msg *domain.MessageConfig) map[string]string {
	out := make(map[string]string)
	for si, section := range msg.Sections {
		for bi, b := range section.Buttons {
			out[connection.ButtonHandle(si, bi)] = b.Label
		}
	}
	return out
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
