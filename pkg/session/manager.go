package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates flow access for many agents.
type Manager struct {
	repo ports.FlowRepository

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL requested from the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over repo.
func NewManager(repo ports.FlowRepository, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(agentID) after unlocking.
func (m *Manager) acquire(agentID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[agentID]
	if !exists {
		entry = &lockEntry{}
		m.locks[agentID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[agentID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, agentID)
	}
}

// Load returns the agent's stored flow, or ErrFlowNotFound.
func (m *Manager) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	var doc *domain.FlowDocument
	err := m.WithLock(ctx, agentID, func(ctx context.Context) error {
		var err error
		doc, err = m.repo.Load(ctx, agentID)
		return err
	})
	return doc, err
}

// LoadOrEmpty returns the agent's stored flow, or an empty document when
// nothing is stored yet.
func (m *Manager) LoadOrEmpty(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	doc, err := m.Load(ctx, agentID)
	if errors.Is(err, domain.ErrFlowNotFound) {
		return &domain.FlowDocument{Nodes: []domain.NodeDocument{}, Edges: []domain.EdgeDocument{}}, nil
	}
	return doc, err
}

// Save replaces the agent's flow.
func (m *Manager) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	return m.WithLock(ctx, agentID, func(ctx context.Context) error {
		return m.repo.Save(ctx, agentID, doc)
	})
}

// Update loads the agent's flow (empty when none is stored), passes it to fn
// and saves what fn returns, all under the agent's lock. An error from fn
// aborts without saving.
func (m *Manager) Update(ctx context.Context, agentID string, fn func(*domain.FlowDocument) (*domain.FlowDocument, error)) (*domain.FlowDocument, error) {
	var out *domain.FlowDocument
	err := m.WithLock(ctx, agentID, func(ctx context.Context) error {
		doc, err := m.repo.Load(ctx, agentID)
		if errors.Is(err, domain.ErrFlowNotFound) {
			doc, err = &domain.FlowDocument{Nodes: []domain.NodeDocument{}, Edges: []domain.EdgeDocument{}}, nil
		}
		if err != nil {
			return err
		}

		next, err := fn(doc)
		if err != nil {
			return err
		}
		if err := m.repo.Save(ctx, agentID, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Delete removes the agent's flow.
func (m *Manager) Delete(ctx context.Context, agentID string) error {
	return m.WithLock(ctx, agentID, func(ctx context.Context) error {
		return m.repo.Delete(ctx, agentID)
	})
}

// List delegates to the repository.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.repo.List(ctx)
}

// Repository returns the underlying repository.
func (m *Manager) Repository() ports.FlowRepository {
	return m.repo
}

// WithLock executes fn while holding the agent's lock.
func (m *Manager) WithLock(ctx context.Context, agentID string, fn func(context.Context) error) error {
	entry := m.acquire(agentID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(agentID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, agentID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"agent_id", agentID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
