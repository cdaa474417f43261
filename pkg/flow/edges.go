package flow

import (
	"fmt"

	"github.com/aretw0/flowboard/pkg/connection"
	"github.com/aretw0/flowboard/pkg/domain"
)

func checkEndpoints(source, target domain.Node, sourceHandle, targetHandle string) error {
	return connection.Check(source, target, sourceHandle, targetHandle)
}

// Connect adds an edge from sourceHandle of source to targetHandle of target
// and returns its id. Empty handles mean the generic output and input.
// Several edges may leave the same handle. Connecting an identical tuple twice
// returns the existing edge.
func (s *Store) Connect(source, sourceHandle, target, targetHandle string) (string, error) {
	if sourceHandle == "" {
		sourceHandle = connection.HandleOutput
	}
	if targetHandle == "" {
		targetHandle = connection.HandleInput
	}
	id := domain.EdgeID(source, sourceHandle, target, targetHandle)

	err := s.apply(OpConnect, func() ([]domain.Change, error) {
		src, ok := s.nodes[source]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source node %s", domain.ErrInvalidEndpoint, source)
		}
		tgt, ok := s.nodes[target]
		if !ok {
			return nil, fmt.Errorf("%w: unknown target node %s", domain.ErrInvalidEndpoint, target)
		}
		if err := checkEndpoints(*src, *tgt, sourceHandle, targetHandle); err != nil {
			return nil, err
		}
		if s.edgeIndex(id) >= 0 {
			return nil, nil
		}

		e := domain.Edge{
			Source:       source,
			SourceHandle: sourceHandle,
			Target:       target,
			TargetHandle: targetHandle,
			Kind:         connection.EdgeKindFor(targetHandle),
		}
		s.edges = append(s.edges, e)
		return []domain.Change{{Type: domain.ChangeEdgeAdded, AddedEdges: []domain.Edge{e.Clone()}}}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Disconnect removes the edge with edgeID. Unknown ids are ignored.
func (s *Store) Disconnect(edgeID string) error {
	return s.apply(OpDisconnect, func() ([]domain.Change, error) {
		i := s.edgeIndex(edgeID)
		if i < 0 {
			return nil, nil
		}
		s.edges = append(s.edges[:i], s.edges[i+1:]...)
		return []domain.Change{{Type: domain.ChangeEdgeRemoved, RemovedEdges: []string{edgeID}}}, nil
	})
}

// SetEdgeStyle replaces the cosmetic style of an edge.
func (s *Store) SetEdgeStyle(edgeID string, style map[string]any) error {
	return s.apply(OpSetEdgeStyle, func() ([]domain.Change, error) {
		i := s.edgeIndex(edgeID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, edgeID)
		}
		e := s.edges[i]
		e.Style = style
		e = e.Clone()
		s.edges[i] = e
		return []domain.Change{{Type: domain.ChangeEdgeUpdated, UpdatedEdges: []domain.Edge{e.Clone()}}}, nil
	})
}

func (s *Store) edgeIndex(id string) int {
	for i, e := range s.edges {
		if e.ID() == id {
			return i
		}
	}
	return -1
}

// realignEdges rewrites the outgoing edges of before so that they match the
// output handles of after. Button edges follow their button by id. When the
// button id is gone but a connect button new to the node sits on the same
// handle, as after a sections patch without ids, the edge stays on that handle.
// Edges on a handle that no longer exists are dropped. It returns the edges
// created by re-keying and the ids of the edges that went away.
func (s *Store) realignEdges(before, after domain.Node) (added []domain.Edge, removed []string) {
	oldButtons := connection.ButtonHandles(before.Config)
	oldByButton := uniqueInverse(oldButtons)
	newButtons := connection.ButtonHandles(after.Config)
	newByButton := uniqueInverse(newButtons)
	known := buttonIDs(before.Config)

	seen := make(map[string]struct{})
	out := make([]domain.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.Source != before.ID {
			out = append(out, e)
			continue
		}

		handle := e.SourceHandle
		gone := false
		if bid := oldButtons[handle]; bid != "" && oldByButton[bid] == handle {
			// The button is identifiable: follow it or drop the edge with it.
			if h, ok := newByButton[bid]; ok {
				handle = h
			} else {
				nid, taken := newButtons[handle]
				gone = !taken || known[nid]
			}
		}
		if gone || !connection.IsOutput(after, handle) {
			removed = append(removed, e.ID())
			continue
		}

		moved := e
		moved.SourceHandle = handle
		if handle != e.SourceHandle {
			removed = append(removed, e.ID())
		}
		if _, dup := seen[moved.ID()]; dup {
			continue
		}
		seen[moved.ID()] = struct{}{}
		out = append(out, moved)
		if handle != e.SourceHandle {
			added = append(added, moved.Clone())
		}
	}
	s.edges = out
	return added, removed
}

// buttonIDs returns the ids of every button of cfg, whatever its action.
func buttonIDs(cfg domain.Config) map[string]bool {
	ids := make(map[string]bool)
	if bc, ok := cfg.(domain.ButtonContainer); ok {
		for _, sec := range bc.ButtonSections() {
			for _, b := range sec.Buttons {
				if b.ID != "" {
					ids[b.ID] = true
				}
			}
		}
	}
	return ids
}

// uniqueInverse inverts handle→button id, skipping ids that are empty or shared.
func uniqueInverse(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	shared := make(map[string]bool)
	for handle, id := range m {
		if id == "" {
			continue
		}
		if _, ok := out[id]; ok {
			shared[id] = true
			continue
		}
		out[id] = handle
	}
	for id := range shared {
		delete(out, id)
	}
	return out
}
