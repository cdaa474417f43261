package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/flowboard/internal/config"
	"github.com/aretw0/flowboard/internal/metrics"
	"github.com/aretw0/flowboard/internal/storage"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/session"
)

// readFlowFile reads a flow from disk. Both a bare document and an
// AgentFlow envelope ({"flowData": ...}) are accepted.
func readFlowFile(codec *persistence.Codec, path string) (*domain.FlowDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &top); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, persistence.ErrMalformedDocument, err)
	}
	if _, ok := top["flowData"]; ok {
		return codec.DecodeEnvelope(data)
	}
	return codec.Decode(data)
}

// openSessions opens the configured storage and a session manager over it.
// The caller must close the returned backend.
func openSessions(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*session.Manager, *storage.Backend, error) {
	opts := []storage.Option{storage.WithLogger(logger)}
	if m != nil {
		opts = append(opts, storage.WithMetrics(m))
	}
	backend, err := storage.Open(ctx, cfg.Storage, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	sessOpts := []session.Option{session.WithLogger(logger)}
	if backend.Locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(backend.Locker))
	}
	return session.NewManager(backend.Repository, sessOpts...), backend, nil
}
