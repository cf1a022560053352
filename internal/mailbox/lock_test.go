package mailbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"utility-billing/internal/mailbox"
	"utility-billing/internal/mailbox/memory"
)

func TestRunLock_Exclusive(t *testing.T) {
	ctx := context.Background()
	lock, err := mailbox.NewRunLock(memory.NewStore(), "", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	if err := lock.Acquire(ctx, "lease-1", "run-a"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Acquire(ctx, "lease-1", "run-b"); !errors.Is(err, mailbox.ErrLeaseLocked) {
		t.Fatalf("expected ErrLeaseLocked, got %v", err)
	}
	// A different lease is unaffected.
	if err := lock.Acquire(ctx, "lease-2", "run-b"); err != nil {
		t.Fatalf("acquire other lease: %v", err)
	}
}

func TestRunLock_ReleaseRequiresHolder(t *testing.T) {
	ctx := context.Background()
	lock, err := mailbox.NewRunLock(memory.NewStore(), "", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	if err := lock.Acquire(ctx, "lease-1", "run-a"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// A stale run releasing someone else's lock is a no-op.
	if err := lock.Release(ctx, "lease-1", "run-stale"); err != nil {
		t.Fatalf("release by non-holder: %v", err)
	}
	if err := lock.Acquire(ctx, "lease-1", "run-b"); !errors.Is(err, mailbox.ErrLeaseLocked) {
		t.Fatalf("lock should still be held, got %v", err)
	}

	if err := lock.Release(ctx, "lease-1", "run-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := lock.Acquire(ctx, "lease-1", "run-b"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}
