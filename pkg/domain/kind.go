package domain

import "fmt"

// NodeKind identifies the schema of a node's configuration.
type NodeKind string

const (
	KindMessage       NodeKind = "message"
	KindLanguageModel NodeKind = "languageModel"
	KindInput         NodeKind = "input"
	KindAPILibrary    NodeKind = "apiLibrary"
	KindKnowledgeBase NodeKind = "knowledgeBase"
	KindEngine        NodeKind = "engine"
)

// Kinds lists every valid NodeKind in palette order.
func Kinds() []NodeKind {
	return []NodeKind{
		KindMessage,
		KindLanguageModel,
		KindInput,
		KindAPILibrary,
		KindKnowledgeBase,
		KindEngine,
	}
}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a wire string into a NodeKind.
func ParseKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
