package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a session lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes the runs of one session across wayfarer
// processes sharing a snapshot store. The registry already orders runs within
// one process; the locker extends that to replicas.
type DistributedLocker interface {
	// Lock blocks until the session's lock is held or ctx is done. The lock
	// expires after ttl if its holder dies mid-run. The returned UnlockFunc
	// must be called when the run ends.
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error)
}
