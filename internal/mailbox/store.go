// Package mailbox coordinates the orchestrator and the portal agent through
// a shared key-value store. Neither process calls the other directly; the
// courier posts typed requests under well-known keys and the agent posts
// results back under matching keys.
package mailbox

import (
	"context"
	"time"
)

// Store is the key-value backend the mailbox runs on. Implementations must
// be safe for concurrent use from both processes.
type Store interface {
	// Put writes the value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// SetNX writes the value only when the key is absent and reports
	// whether the write happened. A zero ttl means no expiry.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// Watcher is an optional Store extension. Watch returns a channel that
// receives a tick whenever the key is written, letting waiters wake up
// before the next poll interval.
type Watcher interface {
	Watch(key string) <-chan struct{}
}
