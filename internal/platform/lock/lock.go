package lock

import (
	"context"
	"time"
)

// Locker hands out named, expiring mutual-exclusion locks.
type Locker interface {
	// Obtain takes the lock or fails with apperrors.ErrLockHeld when another holder has it.
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}
