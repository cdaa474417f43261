// Package storage opens the flow repository selected by the configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/flowboard/internal/config"
	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/internal/metrics"
	"github.com/aretw0/flowboard/pkg/adapters/file"
	httpAdapter "github.com/aretw0/flowboard/pkg/adapters/http"
	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/adapters/redis"
	"github.com/aretw0/flowboard/pkg/adapters/sqlite"
	"github.com/aretw0/flowboard/pkg/persistence/middleware"
	"github.com/aretw0/flowboard/pkg/ports"
)

// Backend is an opened repository with the locker that goes with it.
type Backend struct {
	Repository ports.FlowRepository
	// Locker is nil for backends that only serve one process.
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WithLogger logs repository calls at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records repository latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Open builds the repository for cfg, wrapped with encryption when a key is
// set and with instrumentation.
func Open(ctx context.Context, cfg config.Storage, opts ...Option) (*Backend, error) {
	o := &options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	b := &Backend{}
	switch cfg.Backend {
	case config.BackendMemory, "":
		b.Repository = memory.NewRepository()

	case config.BackendFile:
		b.Repository = file.New(cfg.File.Dir)

	case config.BackendRedis:
		repo := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
			redis.WithCompression(cfg.Redis.Compress),
		)
		if err := repo.Client().Ping(ctx).Err(); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.Repository = repo
		b.Locker = redis.NewLocker(repo.Client(), cfg.Redis.Prefix)
		b.closers = append(b.closers, repo.Close)

	case config.BackendSQLite:
		repo, err := sqlite.Open(ctx, cfg.SQLite.DSN,
			sqlite.WithTableName(cfg.SQLite.Table),
			sqlite.WithCompression(cfg.SQLite.Compress),
		)
		if err != nil {
			return nil, err
		}
		b.Repository = repo
		b.closers = append(b.closers, repo.Close)

	case config.BackendRemote:
		clientOpts := []httpAdapter.ClientOption{httpAdapter.WithClientLogger(o.logger)}
		if cfg.Remote.Timeout > 0 {
			clientOpts = append(clientOpts, httpAdapter.WithTimeout(cfg.Remote.Timeout))
		}
		if cfg.Remote.Token != "" {
			clientOpts = append(clientOpts, httpAdapter.WithToken(cfg.Remote.Token))
		}
		b.Repository = httpAdapter.NewClient(cfg.Remote.BaseURL, clientOpts...)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	key, err := cfg.Key()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	var observe middleware.Observer
	if o.metrics != nil {
		observe = o.metrics.RepositoryObserver()
	}
	mws := []middleware.Middleware{middleware.NewInstrumentMiddleware(observe, o.logger)}
	if key != nil {
		fallbacks, err := cfg.Fallbacks()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		seal, err := middleware.NewEncryption(key, fallbacks...)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, seal)
	}

	b.Repository = middleware.Chain(b.Repository, mws...)
	return b, nil
}
