package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/ports"
)

// DefaultSaveTimeout bounds a single repository save.
const DefaultSaveTimeout = 30 * time.Second

// Saver keeps at most one save of an agent's flow in flight. A document
// submitted while a save is running waits as the pending save; a later
// submission replaces the pending one (last write wins), and its result is
// delivered to every caller it superseded.
type Saver struct {
	repo    ports.FlowRepository
	agentID string
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	pending *saveRequest
	idle    chan struct{}
}

type saveRequest struct {
	doc     *domain.FlowDocument
	waiters []chan error
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithSaveTimeout bounds each repository save.
func WithSaveTimeout(d time.Duration) SaverOption {
	return func(s *Saver) {
		s.timeout = d
	}
}

// WithSaverLogger sets the logger.
func WithSaverLogger(logger *slog.Logger) SaverOption {
	return func(s *Saver) {
		s.logger = logger
	}
}

// NewSaver creates a save coordinator for one agent.
func NewSaver(repo ports.FlowRepository, agentID string, opts ...SaverOption) *Saver {
	s := &Saver{
		repo:    repo,
		agentID: agentID,
		timeout: DefaultSaveTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit schedules doc for saving and returns a channel that receives the
// outcome of the save that finally persisted it or a newer document.
// Submit never blocks.
func (s *Saver) Submit(doc *domain.FlowDocument) <-chan error {
	done := make(chan error, 1)
	doc = doc.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		if s.pending == nil {
			s.pending = &saveRequest{}
		} else {
			s.logger.Debug("pending save superseded", "agent_id", s.agentID)
		}
		s.pending.doc = doc
		s.pending.waiters = append(s.pending.waiters, done)
		return done
	}

	s.running = true
	s.idle = make(chan struct{})
	go s.run(&saveRequest{doc: doc, waiters: []chan error{done}})
	return done
}

// Save submits doc and waits for its outcome or for ctx to end.
func (s *Saver) Save(ctx context.Context, doc *domain.FlowDocument) error {
	select {
	case err := <-s.Submit(doc):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until no save is running or pending, or ctx ends.
func (s *Saver) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	running := s.running
	s.mu.Unlock()

	if !running {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Saver) run(req *saveRequest) {
	for req != nil {
		err := s.save(req.doc)
		for _, w := range req.waiters {
			w <- err
		}

		s.mu.Lock()
		req = s.pending
		s.pending = nil
		if req == nil {
			s.running = false
			close(s.idle)
		}
		s.mu.Unlock()
	}
}

func (s *Saver) save(doc *domain.FlowDocument) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.repo.Save(ctx, s.agentID, doc); err != nil {
		s.logger.Error("save failed", "agent_id", s.agentID, "err", err)
		return fmt.Errorf("%w: save flow %s: %w", domain.ErrPersistenceFailed, s.agentID, err)
	}
	s.logger.Debug("flow saved", "agent_id", s.agentID, "nodes", len(doc.Nodes), "edges", len(doc.Edges), "took", time.Since(start))
	return nil
}
