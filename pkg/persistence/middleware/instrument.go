package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/ports"
)

// Observer receives the outcome of one repository call.
type Observer func(op string, took time.Duration, err error)

type instrumentMiddleware struct {
	next    ports.FlowRepository
	observe Observer
	logger  *slog.Logger
}

// NewInstrumentMiddleware reports the duration and result of every call to
// observe and logs failures. A missing flow on Load is not a failure.
func NewInstrumentMiddleware(observe Observer, logger *slog.Logger) Middleware {
	return func(next ports.FlowRepository) ports.FlowRepository {
		return &instrumentMiddleware{next: next, observe: observe, logger: logger}
	}
}

func (m *instrumentMiddleware) done(ctx context.Context, op, agentID string, start time.Time, err error) {
	if m.observe != nil {
		m.observe(op, time.Since(start), err)
	}
	if err != nil && m.logger != nil && !errors.Is(err, domain.ErrFlowNotFound) {
		m.logger.ErrorContext(ctx, "repository call failed", "op", op, "agent_id", agentID, "err", err)
	}
}

func (m *instrumentMiddleware) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	start := time.Now()
	err := m.next.Save(ctx, agentID, doc)
	m.done(ctx, "save", agentID, start, err)
	return err
}

func (m *instrumentMiddleware) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	start := time.Now()
	doc, err := m.next.Load(ctx, agentID)
	m.done(ctx, "load", agentID, start, err)
	return doc, err
}

func (m *instrumentMiddleware) Delete(ctx context.Context, agentID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, agentID)
	m.done(ctx, "delete", agentID, start, err)
	return err
}

func (m *instrumentMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	agents, err := m.next.List(ctx)
	m.done(ctx, "list", "", start, err)
	return agents, err
}
