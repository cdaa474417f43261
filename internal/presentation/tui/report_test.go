package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/flowboard/internal/presentation/tui"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/stretchr/testify/assert"
)

func TestValidationReport(t *testing.T) {
	nodes := []domain.Node{{ID: "m1", Label: "Welcome"}, {ID: "e1", Label: "Engine"}}
	results := []validation.Result{
		{NodeID: "m1", Field: "headerText", Reason: "too long"},
		{NodeID: "m1", Field: "sections[0].buttons[0].actionValue", Reason: validation.ReasonInvalidEmail},
		{NodeID: "e1", Valid: true},
	}

	report := tui.ValidationReport(results, nodes)
	assert.Contains(t, report, "## Welcome (`m1`)")
	assert.Contains(t, report, "| `headerText` | too long |")
	assert.Contains(t, report, "Invalid email")
	assert.NotContains(t, report, "Engine")
}

func TestValidationReportAllValid(t *testing.T) {
	report := tui.ValidationReport(nil, []domain.Node{{ID: "a"}, {ID: "b"}})
	assert.Contains(t, report, "All 2 nodes are valid.")
}

func TestRenderPlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, tui.IsTerminal(&buf))
	assert.Equal(t, "# Title\n", tui.Render(&buf, "# Title\n"))
}

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	tui.Status(&buf, true, "flow is valid")
	assert.True(t, strings.Contains(buf.String(), "flow is valid"))
}
