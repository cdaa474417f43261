package ports

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContractDocument returns a small flow used by the contract suites.
func ContractDocument() *domain.FlowDocument {
	return &domain.FlowDocument{
		Nodes: []domain.NodeDocument{
			{
				ID:       "message-1700000000000",
				Type:     string(domain.KindMessage),
				Position: domain.Position{X: 100, Y: 50},
				Data: json.RawMessage(`{"label":"Welcome","message":"<p>Hi</p>","sections":[` +
					`{"id":"s1","sectionName":"Menu","buttons":[` +
					`{"id":"b1","label":"Next","actionType":"connect_to_node"}]}]}`),
			},
			{
				ID:       "engine-1700000000001",
				Type:     string(domain.KindEngine),
				Position: domain.Position{X: 400, Y: 50},
				Data:     json.RawMessage(`{"label":"Engine","isMinimized":true}`),
			},
		},
		Edges: []domain.EdgeDocument{
			{
				Source:       "message-1700000000000",
				SourceHandle: "section-0-button-0",
				Target:       "engine-1700000000001",
				TargetHandle: "input",
			},
		},
	}
}

// RunFlowRepositoryContract runs a suite of tests to verify that a FlowRepository
// implementation adheres to the defined interface contract.
func RunFlowRepositoryContract(t *testing.T, repo FlowRepository) {
	ctx := context.Background()
	agentID := "contract-agent-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := ContractDocument()
		require.NoError(t, repo.Save(ctx, agentID, doc), "Save should not return error")

		loaded, err := repo.Load(ctx, agentID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Nodes, 2)
		require.Len(t, loaded.Edges, 1)
		assert.Equal(t, doc.Nodes[0].ID, loaded.Nodes[0].ID)
		assert.Equal(t, doc.Nodes[1].Position, loaded.Nodes[1].Position)
		assert.JSONEq(t, string(doc.Nodes[0].Data), string(loaded.Nodes[0].Data))
		assert.Equal(t, doc.Edges[0].SourceHandle, loaded.Edges[0].SourceHandle)
	})

	t.Run("Save Replaces Whole Document", func(t *testing.T) {
		doc := ContractDocument()
		doc.Nodes = doc.Nodes[1:]
		doc.Edges = nil
		require.NoError(t, repo.Save(ctx, agentID, doc))

		loaded, err := repo.Load(ctx, agentID)
		require.NoError(t, err)
		assert.Len(t, loaded.Nodes, 1)
		assert.Empty(t, loaded.Edges)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := repo.Load(ctx, "non-existent-"+agentID)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, agentID, ContractDocument()))
		require.NoError(t, repo.Delete(ctx, agentID), "Delete should not return error")

		_, err := repo.Load(ctx, agentID)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound, "Load after Delete should return ErrFlowNotFound")

		assert.NoError(t, repo.Delete(ctx, agentID), "Delete of a missing flow is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := agentID + "-1"
		id2 := agentID + "-2"
		require.NoError(t, repo.Save(ctx, id1, ContractDocument()))
		require.NoError(t, repo.Save(ctx, id2, ContractDocument()))
		defer func() {
			_ = repo.Delete(ctx, id1)
			_ = repo.Delete(ctx, id2)
		}()

		agents, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, agents, id1)
		assert.Contains(t, agents, id2)
	})
}

// RunLockerContract verifies that a DistributedLocker excludes concurrent holders of the same key.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()

	t.Run("Exclusive", func(t *testing.T) {
		var (
			mu      sync.Mutex
			holders int
			maxSeen int
			wg      sync.WaitGroup
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, "contract-key", 5*time.Second)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				assert.NoError(t, unlock(ctx))
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})

	t.Run("Canceled", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-held", 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		cctx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(cctx, "contract-held", 5*time.Second)
		assert.Error(t, err)
	})
}
