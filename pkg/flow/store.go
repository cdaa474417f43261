package flow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/google/uuid"
)

// DuplicateOffset is the distance a duplicated node is moved on each axis.
const DuplicateOffset = 50

// Listener receives a change after it has been applied.
type Listener func(domain.Change)

// Hooks observe store operations. Every field is optional.
type Hooks struct {
	// OnMutation runs after every mutating operation with its name and result.
	OnMutation func(op string, err error)
}

// Store is the graph of one flow. It is safe for concurrent use, although a
// flow is expected to have a single editor.
type Store struct {
	mu    sync.Mutex
	nodes map[string]*domain.Node
	order []string
	edges []domain.Edge

	subMu   sync.Mutex
	subs    map[int]Listener
	subKeys []int
	nextSub int

	reg    *registry.Registry
	engine *validation.Engine
	clock  func() time.Time
	newID  func() string
	logger *slog.Logger
	hooks  Hooks
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry sets the node type registry. Defaults to registry.Default().
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Store) {
		s.reg = reg
	}
}

// WithClock sets the time source used for node ids.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithIDGenerator sets the generator for section and button ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithHooks sets the observability hooks.
func WithHooks(h Hooks) Option {
	return func(s *Store) {
		s.hooks = h
	}
}

// NewStore creates an empty graph.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:  make(map[string]*domain.Node),
		subs:   make(map[int]Listener),
		clock:  time.Now,
		newID:  uuid.NewString,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = registry.Default()
	}
	s.engine = validation.NewEngine(s.reg)
	return s
}

// Registry returns the registry the store creates nodes from.
func (s *Store) Registry() *registry.Registry { return s.reg }

// Subscribe registers fn for every future change and returns a function that
// removes it. Listeners run in subscription order, outside the store lock, so
// they may read from the store.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn
	s.subKeys = append(s.subKeys, key)

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, key)
		for i, k := range s.subKeys {
			if k == key {
				s.subKeys = append(s.subKeys[:i], s.subKeys[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) notify(changes []domain.Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subKeys))
	for _, k := range s.subKeys {
		listeners = append(listeners, s.subs[k])
	}
	s.subMu.Unlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
}

// apply runs fn under the store lock, then notifies subscribers and hooks.
// fn must not modify the graph unless it returns a nil error.
func (s *Store) apply(op string, fn func() ([]domain.Change, error)) error {
	s.mu.Lock()
	changes, err := fn()
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("mutation rejected", "op", op, "err", err)
	} else {
		for i := range changes {
			changes[i].Op = op
		}
		s.notify(changes)
	}
	if s.hooks.OnMutation != nil {
		s.hooks.OnMutation(op, err)
	}
	return err
}

// Node returns a copy of the node with id.
func (s *Store) Node(id string) (domain.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return n.Clone(), true
}

// Nodes returns copies of every node in insertion order.
func (s *Store) Nodes() []domain.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of every edge.
func (s *Store) Edges() []domain.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = e.Clone()
	}
	return out
}

// EdgesOf returns copies of the edges touching nodeID.
func (s *Store) EdgesOf(nodeID string) []domain.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Edge
	for _, e := range s.edges {
		if e.Touches(nodeID) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Len returns the number of nodes and edges.
func (s *Store) Len() (nodes, edges int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order), len(s.edges)
}

// Snapshot is a detached copy of the whole graph.
type Snapshot struct {
	Nodes []domain.Node
	Edges []domain.Edge
}

// Clone returns a deep copy of the snapshot.
func (snap Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]domain.Node, len(snap.Nodes)),
		Edges: make([]domain.Edge, len(snap.Edges)),
	}
	for i, n := range snap.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range snap.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// Snapshot copies the current graph.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Nodes: make([]domain.Node, 0, len(s.order)),
		Edges: make([]domain.Edge, len(s.edges)),
	}
	for _, id := range s.order {
		snap.Nodes = append(snap.Nodes, s.nodes[id].Clone())
	}
	for i, e := range s.edges {
		snap.Edges[i] = e.Clone()
	}
	return snap
}

// Restore replaces the whole graph with snap. The snapshot must be consistent:
// unique node ids, known kinds with matching configs, and edges between
// existing nodes on handles those nodes expose. Limits are not enforced here
// so that an over-limit flow can still be loaded and corrected.
func (s *Store) Restore(snap Snapshot) error {
	return s.apply("restore", func() ([]domain.Change, error) {
		nodes := make(map[string]*domain.Node, len(snap.Nodes))
		order := make([]string, 0, len(snap.Nodes))
		for _, n := range snap.Nodes {
			if err := s.checkRestoredNode(n); err != nil {
				return nil, err
			}
			if _, dup := nodes[n.ID]; dup {
				return nil, fmt.Errorf("restore: duplicate node id %q", n.ID)
			}
			cp := n.Clone()
			nodes[n.ID] = &cp
			order = append(order, n.ID)
		}

		edges := make([]domain.Edge, 0, len(snap.Edges))
		seen := make(map[string]struct{}, len(snap.Edges))
		for _, e := range snap.Edges {
			src, ok := nodes[e.Source]
			if !ok {
				return nil, fmt.Errorf("%w: edge %s: unknown source", domain.ErrInvalidEndpoint, e.ID())
			}
			tgt, ok := nodes[e.Target]
			if !ok {
				return nil, fmt.Errorf("%w: edge %s: unknown target", domain.ErrInvalidEndpoint, e.ID())
			}
			if err := checkEndpoints(*src, *tgt, e.SourceHandle, e.TargetHandle); err != nil {
				return nil, err
			}
			if _, dup := seen[e.ID()]; dup {
				continue
			}
			seen[e.ID()] = struct{}{}
			edges = append(edges, e.Clone())
		}

		s.nodes, s.order, s.edges = nodes, order, edges
		return []domain.Change{{Type: domain.ChangeReset}}, nil
	})
}

func (s *Store) checkRestoredNode(n domain.Node) error {
	if n.ID == "" {
		return fmt.Errorf("restore: node without id")
	}
	if _, err := s.reg.Lookup(n.Kind); err != nil {
		return fmt.Errorf("restore node %s: %w", n.ID, err)
	}
	if n.Config == nil || n.Config.Kind() != n.Kind {
		return fmt.Errorf("restore node %s: %w: config does not match kind %s", n.ID, domain.ErrInvalidConfig, n.Kind)
	}
	return nil
}

// Reset empties the graph.
func (s *Store) Reset() {
	_ = s.apply("reset", func() ([]domain.Change, error) {
		s.nodes = make(map[string]*domain.Node)
		s.order = nil
		s.edges = nil
		return []domain.Change{{Type: domain.ChangeReset}}, nil
	})
}

// Validate runs the full validation engine over every node.
func (s *Store) Validate() []validation.Result {
	return s.engine.ValidateNodes(s.Nodes())
}
