package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a mutation targets an unknown id.
var ErrNotFound = errors.New("not found")

// ErrNodeNotFound is returned when a node id is unknown.
var ErrNodeNotFound = fmt.Errorf("node %w", ErrNotFound)

// ErrEdgeNotFound is returned when an edge id is unknown.
var ErrEdgeNotFound = fmt.Errorf("edge %w", ErrNotFound)

// ErrInvalidEndpoint is returned when a connection references a missing node or handle.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// ErrValidationFailed is returned when a save or mutation is blocked by validation.
var ErrValidationFailed = errors.New("validation failed")

// ErrPersistenceFailed wraps storage or transport failures on load and save.
var ErrPersistenceFailed = errors.New("persistence failed")

// ErrFlowNotFound is returned by repositories when no flow is stored for an agent.
var ErrFlowNotFound = errors.New("flow not found")

// ErrUnknownKind is returned for a node kind that is not registered.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrInvalidConfig is returned when a configuration patch cannot be applied.
var ErrInvalidConfig = errors.New("invalid config")
