// Package redis stores flows and distributed save locks in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/flowboard/internal/payload"
	"github.com/aretw0/flowboard/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "flowboard:flow:"

// farFuture scores index entries of flows that never expire (2100-01-01).
const farFuture = 4102444800

// Repository implements ports.FlowRepository using Redis.
// Each flow is one string key; a sorted set indexes agent ids by expiry.
type Repository struct {
	client   *backend.Client
	prefix   string
	ttl      time.Duration
	compress bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithTTL sets the expiration of stored flows. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

// WithCompression stores payloads zstd-compressed. Reads accept both forms.
func WithCompression(enabled bool) Option {
	return func(r *Repository) {
		r.compress = enabled
	}
}

// New creates a Repository with its own client.
func New(address, password string, db int, opts ...Option) *Repository {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Repository over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Repository {
	r := &Repository{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (r *Repository) Client() *backend.Client {
	return r.client
}

func (r *Repository) key(agentID string) string {
	return r.prefix + agentID
}

func (r *Repository) indexKey() string {
	return r.prefix + "index"
}

// Save stores the document and refreshes its index entry in one pipeline.
func (r *Repository) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	data, err := payload.Marshal(doc, r.compress)
	if err != nil {
		return err
	}

	score := float64(time.Now().Add(r.ttl).Unix())
	if r.ttl == 0 {
		score = farFuture
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.key(agentID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{
		Score:  score,
		Member: agentID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the document.
func (r *Repository) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	data, err := r.client.Get(ctx, r.key(agentID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return payload.Unmarshal(data)
}

// Delete removes the document and its index entry.
func (r *Repository) Delete(ctx context.Context, agentID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.key(agentID))
	pipe.ZRem(ctx, r.indexKey(), agentID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns the agents with a live flow. Expired index entries are
// pruned lazily on each call.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired flows: %w", err)
	}

	agents, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	return agents, nil
}

// Close closes the redis client.
func (r *Repository) Close() error {
	return r.client.Close()
}
