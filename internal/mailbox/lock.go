package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RunLock serializes billing runs per lease. A run must hold the lock from
// lease selection until its charge is staged or it starts over, so two
// operators cannot bill the same lease concurrently.
type RunLock struct {
	store     Store
	namespace string
	ttl       time.Duration
}

// NewRunLock creates a lock manager over the given store. The ttl bounds
// how long a crashed run can keep a lease locked.
func NewRunLock(store Store, namespace string, ttl time.Duration) (*RunLock, error) {
	if store == nil {
		return nil, errors.New("mailbox: store is required")
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunLock{store: store, namespace: namespace, ttl: ttl}, nil
}

func (l *RunLock) key(leaseID string) string {
	return fmt.Sprintf("%s:lock:%s", l.namespace, leaseID)
}

// Acquire takes the lock for the lease on behalf of runID. It fails with
// ErrLeaseLocked when any run, including a previous incarnation of this
// one, still holds it.
func (l *RunLock) Acquire(ctx context.Context, leaseID, runID string) error {
	ok, err := l.store.SetNX(ctx, l.key(leaseID), []byte(runID), l.ttl)
	if err != nil {
		return fmt.Errorf("mailbox: acquire lease lock: %w", err)
	}
	if !ok {
		return ErrLeaseLocked
	}
	return nil
}

// Release drops the lock if runID still holds it. Releasing a lock held by
// a different run is a no-op, so a stale run cannot unlock its successor.
func (l *RunLock) Release(ctx context.Context, leaseID, runID string) error {
	key := l.key(leaseID)
	holder, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("mailbox: read lease lock: %w", err)
	}
	if !ok || string(holder) != runID {
		return nil
	}
	if err := l.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("mailbox: release lease lock: %w", err)
	}
	return nil
}
