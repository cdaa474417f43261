package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRepo blocks every Save until release is signalled and records what it saved.
type gatedRepo struct {
	*memory.Repository

	mu       sync.Mutex
	saved    []int
	failNext error
	started  chan struct{}
	release  chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{
		Repository: memory.NewRepository(),
		started:    make(chan struct{}, 16),
		release:    make(chan struct{}),
	}
}

func (r *gatedRepo) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	r.started <- struct{}{}
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	r.saved = append(r.saved, len(doc.Nodes))
	err := r.failNext
	r.failNext = nil
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Repository.Save(ctx, agentID, doc)
}

func docWithNodes(n int) *domain.FlowDocument {
	doc := &domain.FlowDocument{}
	for i := 0; i < n; i++ {
		doc.Nodes = append(doc.Nodes, domain.NodeDocument{ID: string(rune('a' + i)), Type: "engine"})
	}
	return doc
}

func TestSaverLastWriteWins(t *testing.T) {
	repo := newGatedRepo()
	s := NewSaver(repo, "agent")

	first := s.Submit(docWithNodes(1))
	<-repo.started

	second := s.Submit(docWithNodes(2))
	third := s.Submit(docWithNodes(3))

	repo.release <- struct{}{} // first save completes
	require.NoError(t, <-first)

	<-repo.started
	repo.release <- struct{}{} // the pending save carries the newest document
	require.NoError(t, <-second)
	require.NoError(t, <-third)

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, []int{1, 3}, repo.saved, "the superseded document is never written")

	stored, err := repo.Load(context.Background(), "agent")
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 3)
}

func TestSaverFailureWrapsPersistenceError(t *testing.T) {
	repo := newGatedRepo()
	repo.failNext = errors.New("connection reset")
	s := NewSaver(repo, "agent")

	done := s.Submit(docWithNodes(1))
	<-repo.started
	repo.release <- struct{}{}

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	assert.Contains(t, err.Error(), "connection reset")

	// A retry goes through.
	retry := s.Submit(docWithNodes(1))
	<-repo.started
	repo.release <- struct{}{}
	assert.NoError(t, <-retry)
}

func TestSaverTimeout(t *testing.T) {
	repo := newGatedRepo()
	s := NewSaver(repo, "agent", WithSaveTimeout(20*time.Millisecond))

	err := s.Save(context.Background(), docWithNodes(1))
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSaverSubmitCopiesDocument(t *testing.T) {
	repo := newGatedRepo()
	s := NewSaver(repo, "agent")

	doc := docWithNodes(2)
	done := s.Submit(doc)
	doc.Nodes = doc.Nodes[:1]

	<-repo.started
	repo.release <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, []int{2}, repo.saved)
}
