package packaging

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalEvent     = errors.New("event not allowed from current state")
	ErrEmptySKU         = errors.New("sku is required to start packing")
	ErrAttemptActive    = errors.New("finish the current attempt before starting another sku")
	ErrTableNotEmpty    = errors.New("the table must be cleared before the next sku")
	ErrNoAttempt        = errors.New("no active packing attempt")
	ErrPhaseExhausted   = errors.New("all steps of the current phase are complete")
	ErrLayoutIncomplete = errors.New("layout steps are not complete")
	ErrNotInLayout      = errors.New("phase can only advance from layout")
	// ErrMultipleOpen is reported when the ledger holds more than one open attempt.
	ErrMultipleOpen = errors.New("ledger reports more than one open attempt")
)

// TransitionError reports a rejected workflow request. The attempt is unchanged.
type TransitionError struct {
	Event  Event
	State  State
	Reason error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("packaging: %s rejected in state %s: %v", e.Event, e.State, e.Reason)
}

func (e *TransitionError) Unwrap() error { return e.Reason }

// reject builds a TransitionError for operations that are not FSM events.
func reject(op Event, state State, reason error) error {
	return &TransitionError{Event: op, State: state, Reason: reason}
}

// Pseudo-events naming the step operations in TransitionError.
const (
	OpCompleteStep Event = "COMPLETE_STEP"
	OpAdvancePhase Event = "ADVANCE_PHASE"
)
