// Package connection decides which handles a node exposes and therefore which
// edges are legal.
//
// Handles are always derived from the node's current config and never cached:
// a message node with connect_to_node buttons exposes one output handle per
// such button and no generic output; every other node exposes the single
// generic output handle.
package connection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/flowboard/pkg/domain"
)

// Well-known handle ids.
const (
	HandleOutput        = "output"
	HandleInput         = "input"
	HandleKnowledgeBase = "knowledge-base"
)

// ButtonHandle returns the handle id of the button at (section, button).
func ButtonHandle(section, button int) string {
	return fmt.Sprintf("section-%d-button-%d", section, button)
}

// ParseButtonHandle extracts the section and button index from a button handle id.
func ParseButtonHandle(handle string) (section, button int, ok bool) {
	rest, found := strings.CutPrefix(handle, "section-")
	if !found {
		return 0, 0, false
	}
	s, b, found := strings.Cut(rest, "-button-")
	if !found {
		return 0, 0, false
	}
	section, err := strconv.Atoi(s)
	if err != nil || section < 0 {
		return 0, 0, false
	}
	button, err = strconv.Atoi(b)
	if err != nil || button < 0 {
		return 0, 0, false
	}
	return section, button, true
}

// ButtonHandles maps each connect_to_node button's handle id to the button's stable id.
func ButtonHandles(cfg domain.Config) map[string]string {
	bc, ok := cfg.(domain.ButtonContainer)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for si, s := range bc.ButtonSections() {
		for bi, b := range s.Buttons {
			if b.ActionType == domain.ActionConnectToNode {
				out[ButtonHandle(si, bi)] = b.ID
			}
		}
	}
	return out
}

// OutputHandles returns the output handles of node in section/button order.
func OutputHandles(node domain.Node) []string {
	var handles []string
	if bc, ok := node.Config.(domain.ButtonContainer); ok {
		for si, s := range bc.ButtonSections() {
			for bi, b := range s.Buttons {
				if b.ActionType == domain.ActionConnectToNode {
					handles = append(handles, ButtonHandle(si, bi))
				}
			}
		}
	}
	if len(handles) == 0 {
		return []string{HandleOutput}
	}
	return handles
}

// HasGenericOutput reports whether node exposes the generic output handle.
func HasGenericOutput(node domain.Node) bool {
	hs := OutputHandles(node)
	return len(hs) == 1 && hs[0] == HandleOutput
}

// InputHandles returns the input handles of node.
// Language-model nodes additionally accept knowledge-base input.
func InputHandles(node domain.Node) []string {
	if node.Kind == domain.KindLanguageModel {
		return []string{HandleInput, HandleKnowledgeBase}
	}
	return []string{HandleInput}
}

// IsOutput reports whether handle is currently an output handle of node.
func IsOutput(node domain.Node, handle string) bool {
	for _, h := range OutputHandles(node) {
		if h == handle {
			return true
		}
	}
	return false
}

// IsInput reports whether handle is an input handle of node.
func IsInput(node domain.Node, handle string) bool {
	for _, h := range InputHandles(node) {
		if h == handle {
			return true
		}
	}
	return false
}

// EdgeKindFor returns the style kind of an edge ending at targetHandle.
func EdgeKindFor(targetHandle string) domain.EdgeKind {
	if targetHandle == HandleKnowledgeBase {
		return domain.EdgeKnowledgeBase
	}
	return domain.EdgeDefault
}

// Check verifies that an edge leaves a current output of source and enters an input of target.
func Check(source, target domain.Node, sourceHandle, targetHandle string) error {
	if !IsOutput(source, sourceHandle) {
		return fmt.Errorf("%w: %s has no output handle %q", domain.ErrInvalidEndpoint, source.ID, sourceHandle)
	}
	if !IsInput(target, targetHandle) {
		return fmt.Errorf("%w: %s has no input handle %q", domain.ErrInvalidEndpoint, target.ID, targetHandle)
	}
	return nil
}
