// Package timer derives shift work and idle totals by replaying the ledger's
// WORK_STARTED and IDLE_STARTED events.
//
// Totals are never stored. Each read folds the ordered state-change events,
// closing the trailing interval at the shift's end time when it is closed and
// at the observation time otherwise. A stale heartbeat downgrades the reported
// state to idle without writing anything or touching the totals.
package timer

import (
	"fmt"
	"strings"

	"packline/internal/ledger"
)

// State is the worker activity implied by the latest timer event.
type State string

const (
	StateNone State = ""
	StateWork State = "work"
	StateIdle State = "idle"
)

// timerEvents are the event types that move the work/idle state.
var timerEvents = []ledger.EventType{ledger.EventWorkStarted, ledger.EventIdleStarted}

// ParseState accepts "work" or "idle" in any case.
func ParseState(value string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(value))) {
	case StateWork:
		return StateWork, nil
	case StateIdle:
		return StateIdle, nil
	default:
		return StateNone, fmt.Errorf("unknown timer state %q", value)
	}
}

// EventType returns the ledger event that records a switch into s.
func (s State) EventType() (ledger.EventType, bool) {
	switch s {
	case StateWork:
		return ledger.EventWorkStarted, true
	case StateIdle:
		return ledger.EventIdleStarted, true
	default:
		return "", false
	}
}

// StateFor maps a timer event to the state it starts.
func StateFor(t ledger.EventType) (State, bool) {
	switch t {
	case ledger.EventWorkStarted:
		return StateWork, true
	case ledger.EventIdleStarted:
		return StateIdle, true
	default:
		return StateNone, false
	}
}

// Totals is the derived accounting for one shift. Seconds are truncated to whole numbers.
type Totals struct {
	WorkSeconds int64
	IdleSeconds int64
	State       State
	// AutoIdle is set when State was downgraded because the heartbeat went stale.
	AutoIdle bool
}

// Replay folds ordered timer events into totals. Each event's interval runs
// until the next timer event or tailEnd; non-positive intervals are skipped.
// Events of other types are ignored.
func Replay(events []ledger.Event, tailEnd float64) Totals {
	var (
		work, idle float64
		totals     Totals
		prev       *ledger.Event
	)
	account := func(from ledger.Event, until float64) {
		d := until - from.Timestamp
		if d <= 0 {
			return
		}
		if from.Type == ledger.EventWorkStarted {
			work += d
		} else {
			idle += d
		}
	}
	for i := range events {
		ev := events[i]
		if _, ok := StateFor(ev.Type); !ok {
			continue
		}
		if prev != nil {
			account(*prev, ev.Timestamp)
		}
		prev = &events[i]
	}
	if prev == nil {
		return totals
	}
	account(*prev, tailEnd)
	totals.State, _ = StateFor(prev.Type)
	totals.WorkSeconds = int64(work)
	totals.IdleSeconds = int64(idle)
	return totals
}
