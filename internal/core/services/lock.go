package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Default settings for the optional distributed layer.
const (
	ingestLockName      = "ingest"
	ingestLockTTL       = 5 * time.Minute
	ingestLockPollEvery = 250 * time.Millisecond
)

// IngestLock serializes ingestion and maintenance writes. The mutex
// guarantees at most one writer inside this process; callers queue and
// block until the holder releases (non-reentrant, non-fair). When a
// DistributedLock is configured, the guarantee extends across
// instances sharing one store.
//
// The orchestrator and the maintenance service must share one
// IngestLock so cleanup never runs concurrently with an ingestion
// pass.
type IngestLock struct {
	mu   sync.Mutex
	dist driven.DistributedLock
}

// NewIngestLock creates an IngestLock. dist may be nil for
// single-instance deployments.
func NewIngestLock(dist driven.DistributedLock) *IngestLock {
	return &IngestLock{dist: dist}
}

// Acquire blocks until the lock is held and returns a release func.
// The release func must be called on every exit path; the usual form
// is an immediate defer. Context cancellation aborts the wait for the
// distributed layer only; the in-process mutex wait cannot be
// interrupted.
func (l *IngestLock) Acquire(ctx context.Context) (release func(), err error) {
	l.mu.Lock()

	if l.dist == nil {
		return l.mu.Unlock, nil
	}

	if err := l.acquireDistributed(ctx); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	return func() {
		// Best-effort: the TTL reclaims the lock if release fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.dist.Release(releaseCtx, ingestLockName)
		l.mu.Unlock()
	}, nil
}

// acquireDistributed polls until the named lock is acquired or the
// context is cancelled.
func (l *IngestLock) acquireDistributed(ctx context.Context) error {
	for {
		acquired, err := l.dist.Acquire(ctx, ingestLockName, ingestLockTTL)
		if err != nil {
			return fmt.Errorf("acquire distributed ingest lock: %w", err)
		}
		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ingestLockPollEvery):
		}
	}
}
