package domain

// ChangeType categorises a graph mutation.
type ChangeType string

const (
	ChangeNodeAdded   ChangeType = "node_added"
	ChangeNodeRemoved ChangeType = "node_removed"
	ChangeNodeUpdated ChangeType = "node_updated"
	ChangeEdgeAdded   ChangeType = "edge_added"
	ChangeEdgeRemoved ChangeType = "edge_removed"
	ChangeEdgeUpdated ChangeType = "edge_updated"
	ChangeReset       ChangeType = "reset"
)

// Change describes the effect of one mutation so that a renderer can redraw
// incrementally instead of rescanning the graph.
type Change struct {
	Type ChangeType `json:"type"`

	// Op is the name of the store operation that produced the change (e.g. "duplicateNode").
	Op string `json:"op"`

	// NodeID is set for node-level changes.
	NodeID string `json:"node_id,omitempty"`

	// Node holds a copy of the node after the mutation (nil on removal).
	Node *Node `json:"-"`

	// AddedEdges and RemovedEdges list edges created or destroyed as part of the change,
	// including cascades and handle re-keying.
	AddedEdges   []Edge   `json:"-"`
	RemovedEdges []string `json:"removed_edges,omitempty"`

	// UpdatedEdges holds edges whose cosmetic attributes changed in place.
	UpdatedEdges []Edge `json:"-"`
}
