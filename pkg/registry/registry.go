// Package registry declares the node kinds a flow may contain.
//
// Every kind owns one Entry: a default label, a constructor for its zero
// config, a constructor for the config a freshly dropped node starts with, and
// the Schema consumed by the validation engine. The rest of the engine is
// kind-agnostic through this indirection; adding a kind means registering one
// entry.
package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/schema"
)

// Entry describes one node kind.
type Entry struct {
	Kind         domain.NodeKind
	DefaultLabel string

	// New returns an empty config of the kind, used as a decode target.
	New func() domain.Config

	// Default returns the initial config for a newly created node.
	Default func() domain.Config

	Schema schema.Schema
}

// Registry manages the available node kinds.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.NodeKind]Entry
	order   []domain.NodeKind
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.NodeKind]Entry),
	}
}

// Register adds a kind to the registry.
// If the kind is already registered, its entry is overwritten in place.
func (r *Registry) Register(e Entry) error {
	if e.Kind == "" {
		return fmt.Errorf("registry: entry without kind")
	}
	if e.New == nil || e.Default == nil {
		return fmt.Errorf("registry: entry %q must provide New and Default", e.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Kind]; !exists {
		r.order = append(r.order, e.Kind)
	}
	r.entries[e.Kind] = e
	return nil
}

// Lookup returns the entry for a kind.
func (r *Registry) Lookup(kind domain.NodeKind) (Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[kind]
	r.mu.RUnlock()

	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	return e, nil
}

// DefaultConfig returns the initial payload for a new node of kind.
func (r *Registry) DefaultConfig(kind domain.NodeKind) (domain.Config, error) {
	e, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return e.Default(), nil
}

// Schema returns the field constraints for kind.
func (r *Registry) Schema(kind domain.NodeKind) (schema.Schema, error) {
	e, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return e.Schema, nil
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []domain.NodeKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.NodeKind(nil), r.order...)
}
