package driven

import (
	"context"
	"time"
)

// DistributedLock provides distributed locking for coordinating work
// across instances. The process-wide ingest mutex already serializes
// writers inside one process; this extends the guarantee to
// multi-instance deployments sharing one store.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if the lock was successfully acquired, false if
	// already held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. This is best-effort;
	// implementations with TTL will auto-expire anyway. Safe to call
	// even if the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
