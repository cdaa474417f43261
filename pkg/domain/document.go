package domain

import "encoding/json"

// FlowDocument is the canonical wire snapshot of a flow.
// It is always persisted as a whole; there is no partial or delta form.
type FlowDocument struct {
	Nodes []NodeDocument `json:"nodes"`
	Edges []EdgeDocument `json:"edges"`
}

// NodeDocument is a node as it appears on the wire.
// Data holds the label, the minimized flag and the kind-specific config fields flattened together.
type NodeDocument struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// EdgeDocument is an edge as it appears on the wire.
type EdgeDocument struct {
	ID           string         `json:"id,omitempty"`
	Source       string         `json:"source"`
	SourceHandle string         `json:"sourceHandle"`
	Target       string         `json:"target"`
	TargetHandle string         `json:"targetHandle"`
	Type         string         `json:"type,omitempty"`
	Style        map[string]any `json:"style,omitempty"`
}

// AgentFlow is the envelope exchanged with the storage service:
// GET /flow-agents/{agentId} returns it and PATCH /flow-agents/{agentId}/flow accepts it.
type AgentFlow struct {
	AgentID  string        `json:"id,omitempty"`
	FlowData *FlowDocument `json:"flowData"`
}

// Clone returns a deep copy of the document.
func (d *FlowDocument) Clone() *FlowDocument {
	if d == nil {
		return nil
	}
	out := &FlowDocument{
		Nodes: make([]NodeDocument, len(d.Nodes)),
		Edges: make([]EdgeDocument, len(d.Edges)),
	}
	for i, n := range d.Nodes {
		n.Data = append(json.RawMessage(nil), n.Data...)
		out.Nodes[i] = n
	}
	for i, e := range d.Edges {
		if e.Style != nil {
			style := make(map[string]any, len(e.Style))
			for k, v := range e.Style {
				style[k] = v
			}
			e.Style = style
		}
		out.Edges[i] = e
	}
	return out
}
