package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowRepo simulates I/O latency so lost updates show up without locking.
type slowRepo struct {
	*memory.Repository
}

func (r slowRepo) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	time.Sleep(2 * time.Millisecond)
	return r.Repository.Save(ctx, agentID, doc)
}

func (r slowRepo) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	time.Sleep(2 * time.Millisecond)
	return r.Repository.Load(ctx, agentID)
}

func TestManager_UpdateSerializesWriters(t *testing.T) {
	manager := session.NewManager(slowRepo{memory.NewRepository()})
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.Update(ctx, "agent", func(doc *domain.FlowDocument) (*domain.FlowDocument, error) {
				doc.Nodes = append(doc.Nodes, domain.NodeDocument{
					ID:   fmt.Sprintf("engine-%d", i),
					Type: string(domain.KindEngine),
					Data: json.RawMessage(`{}`),
				})
				return doc, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := manager.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, writers, "no update may be lost")
}

func TestManager_UpdateAbortsOnError(t *testing.T) {
	manager := session.NewManager(memory.NewRepository())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := manager.Update(ctx, "agent", func(doc *domain.FlowDocument) (*domain.FlowDocument, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = manager.Load(ctx, "agent")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestManager_LoadOrEmpty(t *testing.T) {
	manager := session.NewManager(memory.NewRepository())
	doc, err := manager.LoadOrEmpty(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, doc.Nodes)
	assert.Empty(t, doc.Nodes)
}

func TestManager_DistributedLock(t *testing.T) {
	locker := memory.NewLocker()
	manager := session.NewManager(memory.NewRepository(), session.WithLocker(locker))
	ctx := context.Background()

	// Another replica holds the agent's lock.
	unlock, err := locker.Lock(ctx, "agent", time.Second)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = manager.Save(cctx, "agent", &domain.FlowDocument{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.NoError(t, manager.Save(ctx, "agent", &domain.FlowDocument{}))
}
