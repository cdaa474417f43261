package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/flowboard/pkg/adapters/file"
	"github.com/aretw0/flowboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.FlowRepository = (*file.Repository)(nil)

func TestFileRepository_Contract(t *testing.T) {
	ports.RunFlowRepositoryContract(t, file.New(t.TempDir()))
}

func TestFileRepository_NoLeftovers(t *testing.T) {
	dir := t.TempDir()
	repo := file.New(dir)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "agent", ports.ContractDocument()))
	require.NoError(t, repo.Save(ctx, "agent", ports.ContractDocument()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "agent.json", entries[0].Name())
}

func TestFileRepository_ListMissingDir(t *testing.T) {
	repo := file.New(filepath.Join(t.TempDir(), "absent"))
	agents, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestFileRepository_RejectsPathIDs(t *testing.T) {
	repo := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		err := repo.Save(ctx, id, ports.ContractDocument())
		assert.ErrorIs(t, err, file.ErrInvalidAgentID, id)
	}
}
