package mailbox

import "errors"

var (
	// ErrAwaitTimeout is returned when no matching result arrives in time.
	ErrAwaitTimeout = errors.New("mailbox: timed out waiting for result")
	// ErrLeaseLocked is returned when another run already holds the lease lock.
	ErrLeaseLocked = errors.New("mailbox: lease already locked by another run")
)
