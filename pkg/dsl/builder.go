package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/validation"
)

type edgeSpec struct {
	source, sourceHandle, target, targetHandle string
}

// Builder manages the graph construction.
type Builder struct {
	reg   *registry.Registry
	nodes map[string]*NodeBuilder
	order []string
	edges []edgeSpec
	errs  []error
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry sets the node type registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(b *Builder) {
		b.reg = reg
	}
}

// New creates a new flow builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		reg:   registry.Default(),
		nodes: make(map[string]*NodeBuilder),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Node adds a node of the given kind with its default configuration.
// If a node with id already exists, its builder is returned unchanged.
func (b *Builder) Node(kind domain.NodeKind, id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Kind: kind},
		builder: b,
	}
	entry, err := b.reg.Lookup(kind)
	if err != nil {
		nb.fail(err)
	} else {
		nb.node.Label = entry.DefaultLabel
		nb.node.Config = entry.Default()
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Message adds a message node.
func (b *Builder) Message(id string) *NodeBuilder {
	return b.Node(domain.KindMessage, id)
}

// Connect adds an edge. Empty handles mean the generic output and input.
func (b *Builder) Connect(source, sourceHandle, target, targetHandle string) *Builder {
	b.edges = append(b.edges, edgeSpec{source, sourceHandle, target, targetHandle})
	return b
}

// Snapshot assembles the graph through a graph store, so every limit and
// connection rule is enforced.
func (b *Builder) Snapshot() (flow.Snapshot, error) {
	if err := errors.Join(b.errs...); err != nil {
		return flow.Snapshot{}, err
	}

	snap := flow.Snapshot{Nodes: make([]domain.Node, 0, len(b.order))}
	for _, id := range b.order {
		nb := b.nodes[id]
		if nb.err != nil {
			return flow.Snapshot{}, fmt.Errorf("node %s: %w", id, nb.err)
		}
		snap.Nodes = append(snap.Nodes, nb.node.Clone())
	}

	store := flow.NewStore(flow.WithRegistry(b.reg))
	if err := store.Restore(snap); err != nil {
		return flow.Snapshot{}, err
	}
	for _, e := range b.edges {
		if _, err := store.Connect(e.source, e.sourceHandle, e.target, e.targetHandle); err != nil {
			return flow.Snapshot{}, err
		}
	}
	return store.Snapshot(), nil
}

// Build returns the flow as a wire document. A flow that would be rejected on
// save is returned as a *validation.Error.
func (b *Builder) Build() (*domain.FlowDocument, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := validation.AsError(validation.NewEngine(b.reg).ValidateNodes(snap.Nodes)); err != nil {
		return nil, err
	}
	return persistence.NewCodec(persistence.WithCodecRegistry(b.reg)).Serialize(snap)
}
