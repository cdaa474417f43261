// Package sqlite stores flows in a SQLite table through database/sql and the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/flowboard/internal/payload"
	"github.com/aretw0/flowboard/pkg/domain"
	_ "modernc.org/sqlite"
)

// DefaultTable is the table flows are stored in.
const DefaultTable = "flows"

// Repository implements ports.FlowRepository on SQLite.
type Repository struct {
	db        *sql.DB
	tableName string
	compress  bool
	now       func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithTableName overrides the table name. Only letters, digits and
// underscores are accepted; anything else keeps the default.
func WithTableName(name string) Option {
	return func(r *Repository) {
		if isSafeIdent(name) {
			r.tableName = name
		}
	}
}

// WithCompression stores payloads zstd-compressed. Reads accept both forms.
func WithCompression(enabled bool) Option {
	return func(r *Repository) {
		r.compress = enabled
	}
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Open opens the database at dsn and makes sure the table exists.
func Open(ctx context.Context, dsn string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	r := New(db, opts...)
	if err := r.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an open database. Call CreateTables before first use.
func New(db *sql.DB, opts ...Option) *Repository {
	r := &Repository{
		db:        db,
		tableName: DefaultTable,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateTables creates the flow table if needed.
func (r *Repository) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			agent_id   TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`, r.tableName)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create flow table: %w", err)
	}
	return nil
}

// Save replaces the agent's row.
func (r *Repository) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	data, err := payload.Marshal(doc, r.compress)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (agent_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, r.tableName)
	if _, err := r.db.ExecContext(ctx, query, agentID, data, r.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

// Load reads the agent's row.
func (r *Repository) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE agent_id = ?", r.tableName)

	var data []byte
	if err := r.db.QueryRowContext(ctx, query, agentID).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}
	return payload.Unmarshal(data)
}

// Delete removes the agent's row. A missing row is not an error.
func (r *Repository) Delete(ctx context.Context, agentID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE agent_id = ?", r.tableName)
	if _, err := r.db.ExecContext(ctx, query, agentID); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}

// List returns stored agent ids in lexical order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT agent_id FROM %s ORDER BY agent_id", r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	agents := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		agents = append(agents, id)
	}
	return agents, rows.Err()
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}
