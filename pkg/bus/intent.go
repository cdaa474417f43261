// Package bus carries user intents from UI affordances to the single component
// allowed to mutate the graph.
//
// Affordances publish typed intents without holding a reference to the graph
// store; the store binds itself as the only subscriber.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
)

// Kind is the closed set of intents.
type Kind string

const (
	KindDelete         Kind = "delete"
	KindDuplicate      Kind = "duplicate"
	KindToggleMinimize Kind = "toggleMinimize"
	KindRename         Kind = "rename"
	KindOpenEditor     Kind = "openEditor"
)

// Event names used when intents travel as named events.
const (
	EventDeleteNode         = "deleteNode"
	EventDuplicateNode      = "duplicateNode"
	EventToggleNodeMinimize = "toggleNodeMinimize"
	EventUpdateNodeLabel    = "updateNodeLabel"
	EventEditNode           = "editNode"
)

// Intent is a request for a graph mutation targeting one node.
type Intent interface {
	Kind() Kind
	// Target returns the id of the node the intent applies to.
	Target() string
	// Event returns the event name of the intent.
	Event() string

	sealed()
}

// DeleteNode asks for a node and its edges to be removed.
type DeleteNode struct {
	NodeID string `json:"nodeId"`
}

func (DeleteNode) Kind() Kind       { return KindDelete }
func (i DeleteNode) Target() string { return i.NodeID }
func (DeleteNode) Event() string    { return EventDeleteNode }
func (DeleteNode) sealed()          {}

// DuplicateNode asks for a copy of a node.
type DuplicateNode struct {
	NodeID string `json:"nodeId"`
}

func (DuplicateNode) Kind() Kind       { return KindDuplicate }
func (i DuplicateNode) Target() string { return i.NodeID }
func (DuplicateNode) Event() string    { return EventDuplicateNode }
func (DuplicateNode) sealed()          {}

// ToggleNodeMinimize sets the minimized view flag of a node.
type ToggleNodeMinimize struct {
	NodeID      string `json:"nodeId"`
	IsMinimized bool   `json:"isMinimized"`
}

func (ToggleNodeMinimize) Kind() Kind       { return KindToggleMinimize }
func (i ToggleNodeMinimize) Target() string { return i.NodeID }
func (ToggleNodeMinimize) Event() string    { return EventToggleNodeMinimize }
func (ToggleNodeMinimize) sealed()          {}

// UpdateNodeLabel renames a node.
type UpdateNodeLabel struct {
	NodeID string `json:"nodeId"`
	Label  string `json:"label"`
}

func (UpdateNodeLabel) Kind() Kind       { return KindRename }
func (i UpdateNodeLabel) Target() string { return i.NodeID }
func (UpdateNodeLabel) Event() string    { return EventUpdateNodeLabel }
func (UpdateNodeLabel) sealed()          {}

// EditNode opens the configuration editor of a node. It changes view state only.
type EditNode struct {
	NodeID string          `json:"nodeId"`
	Type   domain.NodeKind `json:"type"`
}

func (EditNode) Kind() Kind       { return KindOpenEditor }
func (i EditNode) Target() string { return i.NodeID }
func (EditNode) Event() string    { return EventEditNode }
func (EditNode) sealed()          {}

// Decode builds an intent from an event name and its JSON payload.
func Decode(event string, payload []byte) (Intent, error) {
	var (
		in  Intent
		err error
	)
	switch event {
	case EventDeleteNode:
		var v DeleteNode
		err = json.Unmarshal(payload, &v)
		in = v
	case EventDuplicateNode:
		var v DuplicateNode
		err = json.Unmarshal(payload, &v)
		in = v
	case EventToggleNodeMinimize:
		var v ToggleNodeMinimize
		err = json.Unmarshal(payload, &v)
		in = v
	case EventUpdateNodeLabel:
		var v UpdateNodeLabel
		err = json.Unmarshal(payload, &v)
		in = v
	case EventEditNode:
		var v EditNode
		err = json.Unmarshal(payload, &v)
		in = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, event)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event, err)
	}
	if in.Target() == "" {
		return nil, fmt.Errorf("decode %s payload: missing nodeId", event)
	}
	return in, nil
}
