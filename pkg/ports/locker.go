package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writes to one agent's flow across server
// replicas that share a repository.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. ttl bounds how long the
	// lock outlives a holder that never unlocks; in-process lockers may ignore it.
	// The returned UnlockFunc must be called exactly once.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
