package flow

import (
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/schema"
	"github.com/aretw0/flowboard/pkg/validation"
)

// Operation names reported to listeners and hooks.
const (
	OpAddNode       = "addNode"
	OpDuplicateNode = "duplicateNode"
	OpDeleteNode    = "deleteNode"
	OpRenameNode    = "renameNode"
	OpSetMinimized  = "setMinimized"
	OpUpdateConfig  = "updateConfig"
	OpMoveNode      = "moveNode"
	OpConnect       = "connect"
	OpDisconnect    = "disconnect"
	OpSetEdgeStyle  = "setEdgeStyle"
	OpAddSection    = "addSection"
	OpRemoveSection = "removeSection"
	OpAddButton     = "addButton"
	OpUpdateButton  = "updateButton"
	OpRemoveButton  = "removeButton"
	OpMoveButton    = "moveButton"
)

func (s *Store) lookup(id string) (*domain.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return n, nil
}

// nextNodeID returns "<kind>-<unix millis>", moving forward one millisecond
// at a time until the id is free.
func (s *Store) nextNodeID(kind domain.NodeKind) string {
	ms := s.clock().UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", kind, ms)
		if _, taken := s.nodes[id]; !taken {
			return id
		}
		ms++
	}
}

func (s *Store) insert(n domain.Node) {
	cp := n.Clone()
	s.nodes[n.ID] = &cp
	s.order = append(s.order, n.ID)
}

func nodeChange(t domain.ChangeType, n *domain.Node) domain.Change {
	cp := n.Clone()
	return domain.Change{Type: t, NodeID: n.ID, Node: &cp}
}

// AddNode creates a node of kind with its default config and label.
func (s *Store) AddNode(kind domain.NodeKind, pos domain.Position) (string, error) {
	var id string
	err := s.apply(OpAddNode, func() ([]domain.Change, error) {
		e, err := s.reg.Lookup(kind)
		if err != nil {
			return nil, err
		}
		n := domain.Node{
			ID:       s.nextNodeID(kind),
			Kind:     kind,
			Position: pos,
			Label:    e.DefaultLabel,
			Config:   e.Default(),
		}
		s.insert(n)
		id = n.ID
		return []domain.Change{nodeChange(domain.ChangeNodeAdded, s.nodes[id])}, nil
	})
	return id, err
}

// DuplicateNode copies a node's label and config under a new id, offset by
// DuplicateOffset on both axes. Edges are not copied.
func (s *Store) DuplicateNode(nodeID string) (string, error) {
	var id string
	err := s.apply(OpDuplicateNode, func() ([]domain.Change, error) {
		src, err := s.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		cp := src.Clone()
		cp.ID = s.nextNodeID(src.Kind)
		cp.Position = src.Position.Offset(DuplicateOffset, DuplicateOffset)
		s.insert(cp)
		id = cp.ID
		return []domain.Change{nodeChange(domain.ChangeNodeAdded, s.nodes[id])}, nil
	})
	return id, err
}

// DeleteNode removes a node and every edge touching it.
func (s *Store) DeleteNode(nodeID string) error {
	return s.apply(OpDeleteNode, func() ([]domain.Change, error) {
		if _, err := s.lookup(nodeID); err != nil {
			return nil, err
		}

		var removed []string
		kept := s.edges[:0:0]
		for _, e := range s.edges {
			if e.Touches(nodeID) {
				removed = append(removed, e.ID())
				continue
			}
			kept = append(kept, e)
		}
		s.edges = kept

		delete(s.nodes, nodeID)
		for i, id := range s.order {
			if id == nodeID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return []domain.Change{{Type: domain.ChangeNodeRemoved, NodeID: nodeID, RemovedEdges: removed}}, nil
	})
}

// RenameNode sets the display label of a node.
func (s *Store) RenameNode(nodeID, label string) error {
	return s.apply(OpRenameNode, func() ([]domain.Change, error) {
		n, err := s.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		n.Label = label
		return []domain.Change{nodeChange(domain.ChangeNodeUpdated, n)}, nil
	})
}

// SetMinimized sets the minimized view flag of a node.
func (s *Store) SetMinimized(nodeID string, minimized bool) error {
	return s.apply(OpSetMinimized, func() ([]domain.Change, error) {
		n, err := s.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		n.IsMinimized = minimized
		return []domain.Change{nodeChange(domain.ChangeNodeUpdated, n)}, nil
	})
}

// MoveNode sets the canvas position of a node.
func (s *Store) MoveNode(nodeID string, pos domain.Position) error {
	return s.apply(OpMoveNode, func() ([]domain.Change, error) {
		n, err := s.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		n.Position = pos
		return []domain.Change{nodeChange(domain.ChangeNodeUpdated, n)}, nil
	})
}

// UpdateConfig shallow-merges patch into the node's config: each supplied
// top-level field replaces the existing one and every other field is kept.
// Keys must be declared by the kind's schema. The merged config must respect
// the container limits, otherwise a *validation.Error is returned and nothing
// changes.
func (s *Store) UpdateConfig(nodeID string, patch map[string]any) error {
	return s.apply(OpUpdateConfig, func() ([]domain.Change, error) {
		n, err := s.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		sch, err := s.reg.Schema(n.Kind)
		if err != nil {
			return nil, err
		}
		if err := schema.ValidatePatch(sch, patch); err != nil {
			return nil, patchError(nodeID, err)
		}
		merged, err := s.reg.Merge(n.Config, patch)
		if err != nil {
			return nil, err
		}
		if msg, ok := merged.(*domain.MessageConfig); ok {
			msg.FillIDs(s.newID)
		}
		change, err := s.commitConfig(n, merged)
		if err != nil {
			return nil, err
		}
		return []domain.Change{change}, nil
	})
}

func patchError(nodeID string, err error) error {
	errs := schema.FieldErrors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	results := make([]validation.Result, 0, len(errs))
	for _, e := range errs {
		results = append(results, validation.Result{NodeID: nodeID, Field: e.Field, Reason: e.Reason})
	}
	return validation.AsError(results)
}

// commitConfig installs cfg on n after checking limits and realigning the
// node's outgoing edges with its new output handles.
func (s *Store) commitConfig(n *domain.Node, cfg domain.Config) (domain.Change, error) {
	candidate := n.Clone()
	candidate.Config = cfg
	if results := s.engine.CheckLimits(candidate); len(results) > 0 {
		return domain.Change{}, validation.AsError(results)
	}

	added, removed := s.realignEdges(*n, candidate)
	n.Config = cfg.Clone()

	change := nodeChange(domain.ChangeNodeUpdated, n)
	change.AddedEdges = added
	change.RemovedEdges = removed
	return change, nil
}
