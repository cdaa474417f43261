package storage

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/flowboard/internal/config"
	"github.com/aretw0/flowboard/internal/metrics"
	httpAdapter "github.com/aretw0/flowboard/pkg/adapters/http"
	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/ports"
	"github.com/aretw0/flowboard/pkg/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestOpenBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	remote := httptest.NewServer(httpAdapter.NewHandler(session.NewManager(memory.NewRepository())))
	t.Cleanup(remote.Close)

	tests := []struct {
		name       string
		storage    func(dir string) config.Storage
		wantLocker bool
	}{
		{
			name:    "memory",
			storage: func(string) config.Storage { return config.Default().Storage },
		},
		{
			name: "file",
			storage: func(dir string) config.Storage {
				s := config.Default().Storage
				s.Backend = config.BackendFile
				s.File.Dir = dir
				return s
			},
		},
		{
			name: "sqlite",
			storage: func(dir string) config.Storage {
				s := config.Default().Storage
				s.Backend = config.BackendSQLite
				s.SQLite.DSN = filepath.Join(dir, "flows.db")
				s.SQLite.Compress = true
				return s
			},
		},
		{
			name: "redis",
			storage: func(string) config.Storage {
				s := config.Default().Storage
				s.Backend = config.BackendRedis
				s.Redis.Addr = mr.Addr()
				return s
			},
			wantLocker: true,
		},
		{
			name: "remote",
			storage: func(string) config.Storage {
				s := config.Default().Storage
				s.Backend = config.BackendRemote
				s.Remote.BaseURL = remote.URL
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(context.Background(), tt.storage(t.TempDir()))
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, tt.wantLocker, b.Locker != nil)
			ports.RunFlowRepositoryContract(t, b.Repository)
		})
	}
}

func TestOpenRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	s := config.Default().Storage
	s.Backend = config.BackendRedis
	s.Redis.Addr = addr
	_, err = Open(context.Background(), s)
	assert.Error(t, err)
}

func TestOpenEncrypted(t *testing.T) {
	dir := t.TempDir()
	s := config.Default().Storage
	s.Backend = config.BackendFile
	s.File.Dir = dir
	s.EncryptionKey = testKey

	b, err := Open(context.Background(), s)
	require.NoError(t, err)
	defer b.Close()

	ports.RunFlowRepositoryContract(t, b.Repository)

	require.NoError(t, b.Repository.Save(context.Background(), "secret", ports.ContractDocument()))
	raw, err := os.ReadFile(filepath.Join(dir, "secret.json"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "Welcome"), "flow content must not be stored in clear")
}

func TestOpenRecordsMetrics(t *testing.T) {
	m := metrics.New()
	b, err := Open(context.Background(), config.Default().Storage, WithMetrics(m))
	require.NoError(t, err)

	_, _ = b.Repository.Load(context.Background(), "missing")
	require.NoError(t, b.Repository.Save(context.Background(), "a", ports.ContractDocument()))

	assert.Equal(t, 2, testutil.CollectAndCount(m.RepositoryDuration))
}

func TestOpenUnknownBackend(t *testing.T) {
	s := config.Default().Storage
	s.Backend = "tape"
	_, err := Open(context.Background(), s)
	assert.Error(t, err)
}
