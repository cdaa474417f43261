package flowboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/bus"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/ports"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/validation"
)

// Editor owns the flow of one agent: its graph, the intent bus feeding it and
// the load/save pipeline. View state such as the node whose editor is open
// lives here, outside the graph.
type Editor struct {
	agentID string

	store  *flow.Store
	bus    *bus.Bus
	codec  *persistence.Codec
	saver  *persistence.Saver
	loader *persistence.Loader

	repo        ports.FlowRepository
	reg         *registry.Registry
	hooks       flow.Hooks
	saveTimeout time.Duration
	onSave      func(error)
	logger      *slog.Logger

	mu       sync.Mutex
	gen      uint64 // bumped on every graph change
	savedGen uint64 // generation of the last persisted graph
	lastErr  error
	saved    flow.Snapshot
	editing  string

	unsubscribe []func()
}

// Option configures an Editor.
type Option func(*Editor)

// WithRepository sets where flows are loaded from and saved to.
// The default is an in-memory repository.
func WithRepository(repo ports.FlowRepository) Option {
	return func(e *Editor) {
		e.repo = repo
	}
}

// WithRegistry sets the node type registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Editor) {
		e.reg = reg
	}
}

// WithBus publishes intents on a shared bus instead of a private one.
func WithBus(b *bus.Bus) Option {
	return func(e *Editor) {
		e.bus = b
	}
}

// WithHooks observes graph mutations, e.g. for metrics.
func WithHooks(h flow.Hooks) Option {
	return func(e *Editor) {
		e.hooks = h
	}
}

// WithSaveTimeout bounds each repository save.
func WithSaveTimeout(d time.Duration) Option {
	return func(e *Editor) {
		e.saveTimeout = d
	}
}

// WithSaveCallback receives the outcome of every save started by SaveAsync.
func WithSaveCallback(fn func(error)) Option {
	return func(e *Editor) {
		e.onSave = fn
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// New creates an Editor for agentID with an empty graph. Call Load to fetch
// the stored flow.
func New(agentID string, opts ...Option) (*Editor, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agentID cannot be empty")
	}

	e := &Editor{
		agentID:     agentID,
		saveTimeout: persistence.DefaultSaveTimeout,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.repo == nil {
		e.repo = memory.NewRepository()
	}
	if e.reg == nil {
		e.reg = registry.Default()
	}
	if e.bus == nil {
		e.bus = bus.New(bus.WithLogger(e.logger))
	}

	logger := e.logger.With("agent_id", agentID)
	e.store = flow.NewStore(
		flow.WithRegistry(e.reg),
		flow.WithLogger(logger),
		flow.WithHooks(e.hooks),
	)
	e.codec = persistence.NewCodec(
		persistence.WithCodecRegistry(e.reg),
		persistence.WithCodecLogger(logger),
	)
	e.saver = persistence.NewSaver(e.repo, agentID,
		persistence.WithSaveTimeout(e.saveTimeout),
		persistence.WithSaverLogger(logger),
	)
	e.loader = persistence.NewLoader(e.repo, persistence.WithLoaderLogger(logger))

	unbind, err := e.bus.Subscribe(e.handleIntent)
	if err != nil {
		return nil, fmt.Errorf("failed to bind intent bus: %w", err)
	}
	e.unsubscribe = append(e.unsubscribe, unbind, e.store.Subscribe(e.onChange))

	return e, nil
}

// AgentID returns the agent whose flow is edited.
func (e *Editor) AgentID() string { return e.agentID }

// Store returns the graph store.
func (e *Editor) Store() *flow.Store { return e.store }

// Bus returns the intent bus the store consumes.
func (e *Editor) Bus() *bus.Bus { return e.bus }

// Codec returns the document codec.
func (e *Editor) Codec() *persistence.Codec { return e.codec }

func (e *Editor) onChange(c domain.Change) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if c.Type == domain.ChangeNodeRemoved && c.NodeID == e.editing {
		e.editing = ""
	}
	if c.Type == domain.ChangeReset {
		e.editing = ""
	}
}

// handleIntent is the bus consumer. Opening an editor is view state and is
// kept by the Editor; every other intent goes to the store.
func (e *Editor) handleIntent(ctx context.Context, in bus.Intent) error {
	if open, ok := in.(bus.EditNode); ok {
		if _, exists := e.store.Node(open.NodeID); exists {
			e.mu.Lock()
			e.editing = open.NodeID
			e.mu.Unlock()
		}
	}
	return e.store.HandleIntent(ctx, in)
}

// Editing returns the id of the node whose editor is open, if any.
func (e *Editor) Editing() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing, e.editing != ""
}

// CloseEditor clears the open editor.
func (e *Editor) CloseEditor() {
	e.mu.Lock()
	e.editing = ""
	e.mu.Unlock()
}

// Dirty reports whether the graph changed since it was last loaded or saved.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen != e.savedGen
}

// LastSaveError returns the error of the most recent load or save, nil after a success.
func (e *Editor) LastSaveError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Validate runs full validation over the current graph.
func (e *Editor) Validate() []validation.Result {
	return e.store.Validate()
}

// Document serializes the current graph.
func (e *Editor) Document() (*domain.FlowDocument, error) {
	return e.codec.Serialize(e.store.Snapshot())
}

// Load replaces the graph with the agent's stored flow. An agent without a
// stored flow gets an empty graph. On failure the graph is left empty and the
// error wraps domain.ErrPersistenceFailed; Load may simply be retried.
func (e *Editor) Load(ctx context.Context) error {
	doc, err := e.loader.Load(ctx, e.agentID)
	if err != nil {
		return e.loadFailed(err)
	}

	snap, err := e.codec.Deserialize(doc)
	if err != nil {
		return e.loadFailed(fmt.Errorf("%w: decode flow %s: %w", domain.ErrPersistenceFailed, e.agentID, err))
	}
	if err := e.store.Restore(snap); err != nil {
		return e.loadFailed(fmt.Errorf("%w: restore flow %s: %w", domain.ErrPersistenceFailed, e.agentID, err))
	}

	e.mu.Lock()
	e.savedGen = e.gen
	e.saved = snap.Clone()
	e.lastErr = nil
	e.mu.Unlock()

	nodes, edges := e.store.Len()
	e.logger.Info("flow loaded", "agent_id", e.agentID, "nodes", nodes, "edges", edges)
	return nil
}

func (e *Editor) loadFailed(err error) error {
	e.store.Reset()

	e.mu.Lock()
	e.savedGen = e.gen
	e.saved = flow.Snapshot{}
	e.lastErr = err
	e.mu.Unlock()

	e.logger.Error("flow load failed", "agent_id", e.agentID, "err", err)
	return err
}

// prepare validates the graph and serializes it for saving.
func (e *Editor) prepare() (*domain.FlowDocument, flow.Snapshot, uint64, error) {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	snap := e.store.Snapshot()
	if err := validation.AsError(e.store.Validate()); err != nil {
		e.logger.Warn("save blocked by validation", "agent_id", e.agentID, "err", err)
		return nil, flow.Snapshot{}, 0, err
	}
	doc, err := e.codec.Serialize(snap)
	if err != nil {
		return nil, flow.Snapshot{}, 0, err
	}
	return doc, snap, gen, nil
}

func (e *Editor) finishSave(snap flow.Snapshot, gen uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
	if err != nil {
		return
	}
	if gen > e.savedGen {
		e.savedGen = gen
		e.saved = snap
	}
}

// Save validates the graph and persists it as a whole document, waiting for
// the outcome. A graph that fails validation is not sent; the returned error
// is a *validation.Error listing every offending field. Storage failures wrap
// domain.ErrPersistenceFailed and leave the local graph untouched.
func (e *Editor) Save(ctx context.Context) error {
	doc, snap, gen, err := e.prepare()
	if err != nil {
		return err
	}
	err = e.saver.Save(ctx, doc)
	e.finishSave(snap, gen, err)
	return err
}

// SaveAsync validates synchronously and then saves in the background. The
// outcome goes to the save callback. A newer save supersedes a pending one.
func (e *Editor) SaveAsync() error {
	doc, snap, gen, err := e.prepare()
	if err != nil {
		return err
	}
	done := e.saver.Submit(doc)
	go func() {
		err := <-done
		e.finishSave(snap, gen, err)
		if e.onSave != nil {
			e.onSave(err)
		}
	}()
	return nil
}

// Revert restores the graph to what was last loaded or saved.
func (e *Editor) Revert() error {
	e.mu.Lock()
	snap := e.saved.Clone()
	e.mu.Unlock()

	if err := e.store.Restore(snap); err != nil {
		return err
	}
	e.mu.Lock()
	e.savedGen = e.gen
	e.mu.Unlock()
	return nil
}

// Wait blocks until no save is running or pending.
func (e *Editor) Wait(ctx context.Context) error {
	return e.saver.Wait(ctx)
}

// Close detaches the editor from the bus and waits for pending saves.
func (e *Editor) Close() error {
	for _, fn := range e.unsubscribe {
		fn()
	}
	e.unsubscribe = nil
	return e.saver.Wait(context.Background())
}
