package domain

// Position is the canvas coordinate of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset returns the position moved by dx, dy.
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node represents a typed vertex in the flow graph.
// Nodes are owned by the graph store; callers only ever receive copies.
type Node struct {
	ID       string
	Kind     NodeKind
	Position Position

	// Label is the user-editable display name.
	Label string

	// IsMinimized is view state persisted with the graph. It has no graph semantics.
	IsMinimized bool

	Config Config
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Config != nil {
		out.Config = n.Config.Clone()
	}
	return out
}
