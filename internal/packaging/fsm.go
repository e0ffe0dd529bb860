package packaging

import (
	"fmt"
	"strings"

	"packline/internal/ledger"
)

// State is the workflow state of an attempt. StateNone means no attempt exists yet.
type State string

const (
	StateNone         State = ""
	StateStarted      State = "STARTED"
	StateBoxClosed    State = "BOX_CLOSED"
	StateLabelPrinted State = "LABEL_PRINTED"
	StateTableEmpty   State = "TABLE_EMPTY"
)

func (s State) String() string {
	if s == StateNone {
		return "NONE"
	}
	return string(s)
}

// Event is an operator action that drives the workflow.
type Event string

const (
	EventStart      Event = "START"
	EventCloseBox   Event = "BOX_CLOSED"
	EventPrintLabel Event = "PRINT_LABEL"
	EventTableEmpty Event = "TABLE_EMPTY"
)

// ParseEvent accepts a workflow event name in any case.
func ParseEvent(value string) (Event, error) {
	switch ev := Event(strings.ToUpper(strings.TrimSpace(value))); ev {
	case EventStart, EventCloseBox, EventPrintLabel, EventTableEmpty:
		return ev, nil
	default:
		return "", fmt.Errorf("unknown workflow event %q", value)
	}
}

// LedgerType maps the workflow event onto its ledger event type.
func (e Event) LedgerType() ledger.EventType {
	switch e {
	case EventStart:
		return ledger.EventStart
	case EventCloseBox:
		return ledger.EventBoxClosed
	case EventPrintLabel:
		return ledger.EventPrintLabel
	case EventTableEmpty:
		return ledger.EventTableEmpty
	default:
		return ""
	}
}

// transitions lists, per state, the legal events and the state each leads to.
// TABLE_EMPTY is reachable from every non-terminal state so an operator can
// abandon a SKU mid-flow.
var transitions = map[State]map[Event]State{
	StateNone:         {EventStart: StateStarted},
	StateTableEmpty:   {EventStart: StateStarted},
	StateStarted:      {EventCloseBox: StateBoxClosed, EventTableEmpty: StateTableEmpty},
	StateBoxClosed:    {EventPrintLabel: StateLabelPrinted, EventTableEmpty: StateTableEmpty},
	StateLabelPrinted: {EventTableEmpty: StateTableEmpty},
}

// Next returns the state reached by applying ev in state, or a
// *TransitionError when the table has no such edge.
func Next(state State, ev Event) (State, error) {
	next, ok := transitions[state][ev]
	if !ok {
		return state, &TransitionError{Event: ev, State: state, Reason: ErrIllegalEvent}
	}
	return next, nil
}

// Allowed reports whether ev is legal in state.
func Allowed(state State, ev Event) bool {
	_, ok := transitions[state][ev]
	return ok
}

// Capabilities are the UI actions currently available.
type Capabilities struct {
	CanStartSKU       bool
	CanMarkTableEmpty bool
	CanCloseBox       bool
	CanPrintLabel     bool
}

// Flags derives the UI capabilities for state from the transition table.
func Flags(state State) Capabilities {
	return Capabilities{
		CanStartSKU:       Allowed(state, EventStart),
		CanMarkTableEmpty: Allowed(state, EventTableEmpty),
		CanCloseBox:       Allowed(state, EventCloseBox),
		CanPrintLabel:     Allowed(state, EventPrintLabel),
	}
}
