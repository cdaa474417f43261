package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Loader fetches flow documents. Concurrent loads of the same agent share
// one repository call. Loading is idempotent and may be retried freely.
type Loader struct {
	repo   ports.FlowRepository
	group  singleflight.Group
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader over repo.
func NewLoader(repo ports.FlowRepository, opts ...LoaderOption) *Loader {
	l := &Loader{repo: repo, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the stored document of agentID. An agent without a stored flow
// yields an empty document. Any other failure wraps domain.ErrPersistenceFailed.
func (l *Loader) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	v, err, shared := l.group.Do(agentID, func() (any, error) {
		doc, err := l.repo.Load(ctx, agentID)
		if errors.Is(err, domain.ErrFlowNotFound) {
			l.logger.Debug("no stored flow, starting empty", "agent_id", agentID)
			return &domain.FlowDocument{Nodes: []domain.NodeDocument{}, Edges: []domain.EdgeDocument{}}, nil
		}
		if err != nil {
			return nil, err
		}
		if doc == nil {
			doc = &domain.FlowDocument{}
		}
		return doc, nil
	})
	if err != nil {
		l.logger.Error("load failed", "agent_id", agentID, "err", err)
		return nil, fmt.Errorf("%w: load flow %s: %w", domain.ErrPersistenceFailed, agentID, err)
	}
	if shared {
		l.logger.Debug("load shared with concurrent caller", "agent_id", agentID)
	}
	return v.(*domain.FlowDocument).Clone(), nil
}
