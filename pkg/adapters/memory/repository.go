package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flowboard/pkg/domain"
)

// Repository implements ports.FlowRepository in memory.
// Safe for concurrent use.
type Repository struct {
	data map[string]*domain.FlowDocument
	mu   sync.RWMutex
}

// NewRepository creates a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		data: make(map[string]*domain.FlowDocument),
	}
}

// Save stores a copy of doc.
func (r *Repository) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	// Deep copy to ensure isolation, similar to serialization
	cp := doc.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[agentID] = cp
	return nil
}

// Load returns a copy of the stored document.
func (r *Repository) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.data[agentID]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return doc.Clone(), nil
}

// Delete removes the flow.
func (r *Repository) Delete(ctx context.Context, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, agentID)
	return nil
}

// List returns the stored agent ids in lexical order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]string, 0, len(r.data))
	for id := range r.data {
		agents = append(agents, id)
	}
	sort.Strings(agents)
	return agents, nil
}
