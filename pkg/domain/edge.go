package domain

import "fmt"

// EdgeKind distinguishes edge styles. Both kinds are plain directed connections.
type EdgeKind string

const (
	EdgeDefault       EdgeKind = "default"
	EdgeKnowledgeBase EdgeKind = "knowledgeBase"
)

// Edge is a directed connection from a source handle to a target handle.
// Its identity is derived from the four endpoint fields.
type Edge struct {
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string

	Kind EdgeKind

	// Style is cosmetic metadata carried through persistence untouched.
	Style map[string]any
}

// EdgeID builds the identity of an edge from its endpoints.
func EdgeID(source, sourceHandle, target, targetHandle string) string {
	return fmt.Sprintf("edge__%s_%s-%s_%s", source, sourceHandle, target, targetHandle)
}

// ID returns the derived identity of the edge.
func (e Edge) ID() string {
	return EdgeID(e.Source, e.SourceHandle, e.Target, e.TargetHandle)
}

// Touches reports whether the edge starts or ends at nodeID.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Clone returns a copy with its own style map.
func (e Edge) Clone() Edge {
	out := e
	if e.Style != nil {
		out.Style = make(map[string]any, len(e.Style))
		for k, v := range e.Style {
			out.Style[k] = v
		}
	}
	return out
}
