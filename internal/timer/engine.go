package timer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"packline/internal/ledger"
	"packline/internal/logging"
)

// EventLog is the slice of the ledger the engine reads and appends to.
type EventLog interface {
	Query(ctx context.Context, shiftID int64, types ...ledger.EventType) ([]ledger.Event, error)
	Latest(ctx context.Context, shiftID int64, types ...ledger.EventType) (*ledger.Event, error)
	Append(ctx context.Context, ev ledger.Event) (int64, error)
	AppendUnlessLatest(ctx context.Context, ev ledger.Event, types ...ledger.EventType) (int64, bool, error)
}

// ShiftOracle reports whether a shift is still open and when it closed.
type ShiftOracle interface {
	IsOpen(ctx context.Context, shiftID int64) (bool, error)
	EndTime(ctx context.Context, shiftID int64) (*float64, error)
}

// Engine computes and records shift timer state. It does not check whether a
// shift is open before writing; callers reject closed shifts first.
type Engine struct {
	events EventLog
	shifts ShiftOracle
	logger *slog.Logger
}

// NewEngine wires the engine to its ledger collaborators.
func NewEngine(events EventLog, shifts ShiftOracle, logger *slog.Logger) *Engine {
	return &Engine{
		events: events,
		shifts: shifts,
		logger: logging.NewComponentLogger(logger, "timer"),
	}
}

// Compute replays the shift's timer events observed at now. When idleTimeout
// is positive and the latest heartbeat is older than it, a work state is
// reported as idle. The totals are unaffected by that override.
func (e *Engine) Compute(ctx context.Context, shiftID int64, now, idleTimeout float64) (Totals, error) {
	if shiftID <= 0 {
		return Totals{}, nil
	}
	events, err := e.events.Query(ctx, shiftID, timerEvents...)
	if err != nil {
		return Totals{}, fmt.Errorf("load timer events: %w", err)
	}
	if len(events) == 0 {
		return Totals{}, nil
	}

	tail, err := e.tailEnd(ctx, shiftID, now)
	if err != nil {
		return Totals{}, err
	}
	totals := Replay(events, tail)

	if idleTimeout > 0 && totals.State == StateWork {
		age, ok, err := e.HeartbeatAge(ctx, shiftID, now)
		if err != nil {
			return Totals{}, err
		}
		if ok && age > idleTimeout {
			totals.State = StateIdle
			totals.AutoIdle = true
		}
	}
	return totals, nil
}

func (e *Engine) tailEnd(ctx context.Context, shiftID int64, now float64) (float64, error) {
	open, err := e.shifts.IsOpen(ctx, shiftID)
	if err != nil {
		return 0, fmt.Errorf("shift liveness: %w", err)
	}
	if open {
		return now, nil
	}
	end, err := e.shifts.EndTime(ctx, shiftID)
	if err != nil {
		return 0, fmt.Errorf("shift end time: %w", err)
	}
	if end != nil && *end < now {
		return *end, nil
	}
	return now, nil
}

// RecordState appends the event for state unless the shift's latest timer
// event already reflects it. It reports whether an event was written.
func (e *Engine) RecordState(ctx context.Context, shiftID int64, state State, reason string, ts float64, workerID string) (bool, error) {
	evType, ok := state.EventType()
	if !ok {
		return false, fmt.Errorf("record timer state: unknown state %q", state)
	}
	payload := "{}"
	if reason != "" {
		encoded, err := json.Marshal(map[string]string{"reason": reason})
		if err != nil {
			return false, fmt.Errorf("encode reason: %w", err)
		}
		payload = string(encoded)
	}
	_, written, err := e.events.AppendUnlessLatest(ctx, ledger.Event{
		Timestamp: ts,
		Type:      evType,
		ShiftID:   shiftID,
		WorkerID:  workerID,
		Payload:   payload,
	}, timerEvents...)
	if err != nil {
		return false, fmt.Errorf("record timer state: %w", err)
	}
	if written {
		e.logger.Debug("timer state recorded",
			logging.Int64(logging.FieldShiftID, shiftID),
			logging.String("state", string(state)),
			logging.Timestamp("event_ts", ts),
		)
	}
	return written, nil
}

// RecordHeartbeat always appends a HEARTBEAT event and returns its identifier.
func (e *Engine) RecordHeartbeat(ctx context.Context, shiftID int64, ts float64, source, workerID string) (int64, error) {
	payload := "{}"
	if source != "" {
		encoded, err := json.Marshal(map[string]string{"source": source})
		if err != nil {
			return 0, fmt.Errorf("encode source: %w", err)
		}
		payload = string(encoded)
	}
	id, err := e.events.Append(ctx, ledger.Event{
		Timestamp: ts,
		Type:      ledger.EventHeartbeat,
		ShiftID:   shiftID,
		WorkerID:  workerID,
		Payload:   payload,
	})
	if err != nil {
		return 0, fmt.Errorf("record heartbeat: %w", err)
	}
	return id, nil
}

// HeartbeatAge returns seconds since the shift's latest heartbeat. ok is false
// when the shift has no heartbeat yet.
func (e *Engine) HeartbeatAge(ctx context.Context, shiftID int64, now float64) (float64, bool, error) {
	latest, err := e.events.Latest(ctx, shiftID, ledger.EventHeartbeat)
	if err != nil {
		return 0, false, fmt.Errorf("latest heartbeat: %w", err)
	}
	if latest == nil {
		return 0, false, nil
	}
	age := now - latest.Timestamp
	if age < 0 {
		age = 0
	}
	return age, true, nil
}
