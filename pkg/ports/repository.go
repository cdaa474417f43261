package ports

import (
	"context"

	"github.com/aretw0/flowboard/pkg/domain"
)

// FlowRepository persists flow documents. A save always replaces the whole
// document; there is no partial or incremental form.
type FlowRepository interface {
	// Load retrieves the flow of an agent.
	// Returns domain.ErrFlowNotFound if the agent has no stored flow.
	Load(ctx context.Context, agentID string) (*domain.FlowDocument, error)

	// Save replaces the flow of an agent.
	Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error

	// Delete removes the flow of an agent. Deleting a missing flow is not an error.
	Delete(ctx context.Context, agentID string) error

	// List returns the ids of the agents that have a stored flow.
	List(ctx context.Context) ([]string, error)
}
