package validation

import (
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/schema"
)

// Engine validates nodes using the schemas of a registry.
type Engine struct {
	reg *registry.Registry
}

// NewEngine creates an engine bound to reg. A nil registry means registry.Default().
func NewEngine(reg *registry.Registry) *Engine {
	if reg == nil {
		reg = registry.Default()
	}
	return &Engine{reg: reg}
}

var defaultEngine = NewEngine(nil)

// ValidateNode validates node with the default registry.
func ValidateNode(node domain.Node) []Result {
	return defaultEngine.ValidateNode(node)
}

// ValidateNode returns every failing check of node: container limits, field
// formats and per-button values. An empty result means the node is valid.
func (e *Engine) ValidateNode(node domain.Node) []Result {
	results := e.CheckLimits(node)
	results = append(results, e.checkFormats(node)...)

	if bc, ok := node.Config.(domain.ButtonContainer); ok {
		for si, s := range bc.ButtonSections() {
			for bi, b := range s.Buttons {
				r := ValidateButton(b.ActionType, b.ActionValue)
				if r.Valid {
					continue
				}
				field := "actionValue"
				if r.Reason == ReasonInvalidAction {
					field = "actionType"
				}
				r.NodeID = node.ID
				r.Field = fmt.Sprintf("%s[%d].buttons[%d].%s", domain.FieldSections, si, bi, field)
				results = append(results, r)
			}
		}
	}
	return results
}

// ValidateNodes validates every node and concatenates the failures.
func (e *Engine) ValidateNodes(nodes []domain.Node) []Result {
	var results []Result
	for _, n := range nodes {
		results = append(results, e.ValidateNode(n)...)
	}
	return results
}

// CheckLimits returns only the container-level failures of node: schema types,
// lengths, counts, ranges and enumerations. The graph store enforces these on
// every mutation.
func (e *Engine) CheckLimits(node domain.Node) []Result {
	if node.Config == nil {
		return []Result{{NodeID: node.ID, Reason: "missing config"}}
	}
	if node.Config.Kind() != node.Kind {
		return []Result{{NodeID: node.ID, Reason: fmt.Sprintf("config of kind %s on %s node", node.Config.Kind(), node.Kind)}}
	}

	s, err := e.reg.Schema(node.Kind)
	if err != nil {
		return []Result{{NodeID: node.ID, Reason: err.Error()}}
	}
	fields, err := registry.Fields(node.Config)
	if err != nil {
		return []Result{{NodeID: node.ID, Reason: err.Error()}}
	}

	var results []Result
	if err := schema.Validate(s, fields); err != nil {
		results = append(results, fromSchemaErrors(node.ID, err)...)
	}

	if bc, ok := node.Config.(domain.ButtonContainer); ok {
		for si, sec := range bc.ButtonSections() {
			if n := len(sec.Buttons); n > domain.MaxButtonsPerSection {
				results = append(results, Result{
					NodeID: node.ID,
					Field:  fmt.Sprintf("%s[%d].buttons", domain.FieldSections, si),
					Reason: fmt.Sprintf("must have at most %d items (got %d)", domain.MaxButtonsPerSection, n),
				})
			}
		}
	}
	return results
}

func (e *Engine) checkFormats(node domain.Node) []Result {
	s, err := e.reg.Schema(node.Kind)
	if err != nil || node.Config == nil {
		return nil
	}
	fields, err := registry.Fields(node.Config)
	if err != nil {
		return nil
	}

	var results []Result
	for _, f := range s {
		if f.Format == "" {
			continue
		}
		v, _ := fields[f.Name].(string)
		if r := CheckFormat(f.Format, v); !r.Valid {
			r.NodeID = node.ID
			r.Field = f.Name
			results = append(results, r)
		}
	}
	return results
}

func fromSchemaErrors(nodeID string, err error) []Result {
	var results []Result
	for _, e := range schema.FieldErrors(err) {
		results = append(results, Result{NodeID: nodeID, Field: e.Field, Reason: e.Reason})
	}
	if results == nil && err != nil {
		results = append(results, Result{NodeID: nodeID, Reason: err.Error()})
	}
	return results
}
