package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("workflow: run not found")
	// ErrSettingsIncomplete blocks runs while the landlord profile is empty.
	ErrSettingsIncomplete = errors.New("workflow: landlord settings incomplete")
	// ErrChargeNotStaged is returned when staging failed on the agent side.
	ErrChargeNotStaged = errors.New("workflow: charge was not staged")
)

// InvalidTransitionError reports an operation attempted in the wrong panel.
type InvalidTransitionError struct {
	From Panel
	To   Panel
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("workflow: cannot move from %s to %s", e.From, e.To)
}
