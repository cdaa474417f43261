package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Contract(t *testing.T) {
	ports.RunFlowRepositoryContract(t, memory.NewRepository())
}

func TestMemoryLocker_Contract(t *testing.T) {
	ports.RunLockerContract(t, memory.NewLocker())
}

func TestMemoryRepository_Isolation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()

	doc := ports.ContractDocument()
	require.NoError(t, repo.Save(ctx, "agent", doc))

	doc.Nodes[0].ID = "changed after save"
	loaded, err := repo.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, "message-1700000000000", loaded.Nodes[0].ID)

	loaded.Nodes[0].Data[0] = 'X'
	again, err := repo.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.Nodes[0].Data[0])
}
