// Package middleware decorates flow repositories with cross-cutting behaviour
// such as encryption at rest and timing.
package middleware

import "github.com/aretw0/flowboard/pkg/ports"

// Middleware allows wrapping a FlowRepository to add behavior.
type Middleware func(ports.FlowRepository) ports.FlowRepository

// Chain applies middlewares so that the first one is the outermost.
func Chain(repo ports.FlowRepository, mws ...Middleware) ports.FlowRepository {
	for i := len(mws) - 1; i >= 0; i-- {
		repo = mws[i](repo)
	}
	return repo
}
