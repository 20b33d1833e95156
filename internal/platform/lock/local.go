package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
)

// LocalLocker serializes holders inside one process. Used when no Redis is configured.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]time.Time{}, nowFn: time.Now}
}

var _ Locker = (*LocalLocker)(nil)

func (l *LocalLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrLockHeld, key)
	}
	expiry := now.Add(ttl)
	l.held[key] = expiry
	return &localLock{owner: l, key: key, expiry: expiry}, nil
}

type localLock struct {
	owner  *LocalLocker
	key    string
	expiry time.Time
}

func (k *localLock) Release(_ context.Context) error {
	k.owner.mu.Lock()
	defer k.owner.mu.Unlock()
	if current, ok := k.owner.held[k.key]; ok && current.Equal(k.expiry) {
		delete(k.owner.held, k.key)
	}
	return nil
}
