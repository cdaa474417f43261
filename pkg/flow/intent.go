package flow

import (
	"context"
	"errors"

	"github.com/aretw0/flowboard/pkg/bus"
	"github.com/aretw0/flowboard/pkg/domain"
)

// HandleIntent translates an intent into the matching store operation.
// Intents that target an unknown node are logged and ignored. Editor intents
// carry view state only and are accepted without touching the graph.
func (s *Store) HandleIntent(ctx context.Context, in bus.Intent) error {
	var err error
	switch v := in.(type) {
	case bus.DeleteNode:
		err = s.DeleteNode(v.NodeID)
	case bus.DuplicateNode:
		_, err = s.DuplicateNode(v.NodeID)
	case bus.ToggleNodeMinimize:
		err = s.SetMinimized(v.NodeID, v.IsMinimized)
	case bus.UpdateNodeLabel:
		err = s.RenameNode(v.NodeID, v.Label)
	case bus.EditNode:
		if _, ok := s.Node(v.NodeID); !ok {
			err = domain.ErrNodeNotFound
		}
	}

	if errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "intent targets unknown node", "intent", in.Kind(), "node_id", in.Target())
		return nil
	}
	return err
}

// Bind makes the store the consumer of b.
func (s *Store) Bind(b *bus.Bus) (func(), error) {
	return b.Subscribe(s.HandleIntent)
}
