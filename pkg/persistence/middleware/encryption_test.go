package middleware_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/persistence/middleware"
	"github.com/aretw0/flowboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := rand.Read(k)
	require.NoError(t, err)
	return k
}

func sealed(t *testing.T, repo ports.FlowRepository, keys ...[]byte) ports.FlowRepository {
	t.Helper()
	mw, err := middleware.NewEncryption(keys[0], keys[1:]...)
	require.NoError(t, err)
	return mw(repo)
}

func TestEncryption_Contract(t *testing.T) {
	ports.RunFlowRepositoryContract(t, sealed(t, memory.NewRepository(), newKey(t)))
}

func TestEncryption_HidesContent(t *testing.T) {
	underlying := memory.NewRepository()
	repo := sealed(t, underlying, newKey(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "agent", ports.ContractDocument()))

	stored, err := underlying.Load(ctx, "agent")
	require.NoError(t, err)
	require.Len(t, stored.Nodes, 1)
	assert.Equal(t, middleware.SealedType, stored.Nodes[0].Type)
	assert.NotContains(t, string(stored.Nodes[0].Data), "Welcome")

	loaded, err := repo.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, ports.ContractDocument().Nodes[0].ID, loaded.Nodes[0].ID)
}

func TestEncryption_KeyRotation(t *testing.T) {
	underlying := memory.NewRepository()
	oldKey, newKeyBytes := newKey(t), newKey(t)
	ctx := context.Background()

	before := sealed(t, underlying, oldKey)
	require.NoError(t, before.Save(ctx, "agent", ports.ContractDocument()))

	after := sealed(t, underlying, newKeyBytes, oldKey)
	doc, err := after.Load(ctx, "agent")
	require.NoError(t, err, "fallback key opens flows sealed before rotation")

	require.NoError(t, after.Save(ctx, "agent", doc))
	_, err = before.Load(ctx, "agent")
	assert.ErrorIs(t, err, middleware.ErrUnseal, "new saves use the active key only")
}

func TestEncryption_BoundToAgent(t *testing.T) {
	underlying := memory.NewRepository()
	repo := sealed(t, underlying, newKey(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "alice", ports.ContractDocument()))
	stolen, err := underlying.Load(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, underlying.Save(ctx, "mallory", stolen))

	_, err = repo.Load(ctx, "mallory")
	assert.ErrorIs(t, err, middleware.ErrUnseal)
}

func TestEncryption_RefusesPlainFlows(t *testing.T) {
	underlying := memory.NewRepository()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", ports.ContractDocument()))

	_, err := sealed(t, underlying, newKey(t)).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryption_BadKeys(t *testing.T) {
	_, err := middleware.NewEncryption([]byte("short-key"))
	assert.Error(t, err)

	_, err = middleware.NewEncryption(newKey(t), []byte("short-fallback"))
	assert.Error(t, err)
}
