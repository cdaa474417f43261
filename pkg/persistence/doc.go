// Package persistence converts the graph to and from the FlowDocument wire
// format and coordinates loads and saves against a ports.FlowRepository.
//
// A flow is always persisted as a whole document. Incoming documents are
// checked structurally against a JSON schema before they are decoded; edges
// that reference missing nodes or handles are dropped with a warning rather
// than failing the load.
package persistence
