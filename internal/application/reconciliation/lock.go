package reconciliation

import "context"

// RunLock serializes runs between processes sharing one mirror database.
// TryAcquire never waits: when another holder owns the lock it returns an
// error wrapping ErrSyncInProgress.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(context.Context), err error)
}
