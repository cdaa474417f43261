// Package tui renders validation reports and status lines for the CLI.
package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/muesli/termenv"
)

// ValidationReport builds a markdown report of failed results grouped by node.
// Node labels are looked up in nodes when available.
func ValidationReport(results []validation.Result, nodes []domain.Node) string {
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		labels[n.ID] = n.Label
	}

	byNode := make(map[string][]validation.Result)
	for _, r := range results {
		if r.Valid {
			continue
		}
		byNode[r.NodeID] = append(byNode[r.NodeID], r)
	}

	var sb strings.Builder
	sb.WriteString("# Validation report\n\n")
	if len(byNode) == 0 {
		sb.WriteString(fmt.Sprintf("All %d nodes are valid.\n", len(nodes)))
		return sb.String()
	}

	ids := make([]string, 0, len(byNode))
	for id := range byNode {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		title := id
		if label := labels[id]; label != "" {
			title = fmt.Sprintf("%s (`%s`)", label, id)
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", title))
		sb.WriteString("| Field | Problem |\n|---|---|\n")
		for _, r := range byNode[id] {
			field := r.Field
			if field == "" {
				field = "-"
			}
			sb.WriteString(fmt.Sprintf("| `%s` | %s |\n", field, strings.ReplaceAll(r.Reason, "|", "\\|")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Status writes a one-line status, green for success and red otherwise.
func Status(w io.Writer, ok bool, msg string) {
	out := termenv.NewOutput(w)
	style := out.String(msg)
	if ok {
		style = style.Foreground(out.Color("#22c55e"))
	} else {
		style = style.Foreground(out.Color("#ef4444")).Bold()
	}
	fmt.Fprintln(w, style)
}
