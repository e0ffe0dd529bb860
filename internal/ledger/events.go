package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// EventType names a ledger event. The set is closed; see Category.
type EventType string

const (
	EventWorkStarted EventType = "WORK_STARTED"
	EventIdleStarted EventType = "IDLE_STARTED"

	EventHeartbeat EventType = "HEARTBEAT"

	EventStart         EventType = "START"
	EventBoxClosed     EventType = "BOX_CLOSED"
	EventPrintLabel    EventType = "PRINT_LABEL"
	EventTableEmpty    EventType = "TABLE_EMPTY"
	EventStepCompleted EventType = "STEP_COMPLETED"
	EventPhaseChanged  EventType = "PHASE_CHANGED"

	EventPackedConfirmed EventType = "PACKED_CONFIRMED"
	EventMasterLogin     EventType = "MASTER_LOGIN"
	EventMasterLogout    EventType = "MASTER_LOGOUT"
	EventSettingsChanged EventType = "SETTINGS_CHANGED"
)

// Category groups event types by the component that interprets them.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTimer
	CategoryLiveness
	CategoryWorkflow
	CategoryAudit
)

func (c Category) String() string {
	switch c {
	case CategoryTimer:
		return "timer"
	case CategoryLiveness:
		return "liveness"
	case CategoryWorkflow:
		return "workflow"
	case CategoryAudit:
		return "audit"
	default:
		return "unknown"
	}
}

// Category reports which component owns the event type.
func (t EventType) Category() Category {
	switch t {
	case EventWorkStarted, EventIdleStarted:
		return CategoryTimer
	case EventHeartbeat:
		return CategoryLiveness
	case EventStart, EventBoxClosed, EventPrintLabel, EventTableEmpty, EventStepCompleted, EventPhaseChanged:
		return CategoryWorkflow
	case EventPackedConfirmed, EventMasterLogin, EventMasterLogout, EventSettingsChanged:
		return CategoryAudit
	default:
		return CategoryUnknown
	}
}

// Valid reports whether t belongs to the closed event set.
func (t EventType) Valid() bool { return t.Category() != CategoryUnknown }

// ParseEventType accepts an event type name in any case.
func ParseEventType(value string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, value)
	}
	return t, nil
}

// Event is an immutable ledger record. Timestamp is wall-clock seconds.
// ShiftID is zero for events not scoped to a shift.
type Event struct {
	ID        int64
	Timestamp float64
	Type      EventType
	ShiftID   int64
	SessionID *int64
	WorkerID  string
	Payload   string
}

const eventColumns = "id, ts, type, shift_id, session_id, worker_id, payload_json"

func insertEvent(ctx context.Context, tx *sql.Tx, ev Event) (int64, error) {
	payload := ev.Payload
	if payload == "" {
		payload = "{}"
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (ts, type, shift_id, session_id, worker_id, payload_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Timestamp, string(ev.Type), nullableID(ev.ShiftID), nullableIDPtr(ev.SessionID),
		nullableString(ev.WorkerID), payload,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

func validateEvent(ev Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: event type %q", ErrInvalidArgument, ev.Type)
	}
	return nil
}

// Append durably writes ev and returns its identifier.
func (s *Store) Append(ctx context.Context, ev Event) (int64, error) {
	if err := validateEvent(ev); err != nil {
		return 0, err
	}
	var id int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertEvent(ctx, tx, ev)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AppendUnlessLatest appends ev unless the most recent event of the given
// types for ev.ShiftID already has ev.Type. The check and the insert run in
// one write transaction. It reports whether a row was written.
func (s *Store) AppendUnlessLatest(ctx context.Context, ev Event, types ...EventType) (int64, bool, error) {
	if err := validateEvent(ev); err != nil {
		return 0, false, err
	}
	if len(types) == 0 {
		types = []EventType{ev.Type}
	}
	var (
		id      int64
		written bool
	)
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		id, written = 0, false
		query, args := latestQuery(ev.ShiftID, types)
		var latest string
		err := tx.QueryRowContext(ctx, query, args...).Scan(&latest)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("latest event: %w", err)
		}
		if err == nil && EventType(latest) == ev.Type {
			return nil
		}
		id, err = insertEvent(ctx, tx, ev)
		if err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, written, nil
}

func latestQuery(shiftID int64, types []EventType) (string, []any) {
	args := make([]any, 0, len(types)+1)
	args = append(args, shiftID)
	for _, t := range types {
		args = append(args, string(t))
	}
	return fmt.Sprintf(`SELECT type FROM events
		WHERE shift_id = ? AND type IN (%s)
		ORDER BY ts DESC, id DESC LIMIT 1`, makePlaceholders(len(types))), args
}

// Query returns a shift's events of the given types ordered by (ts, id).
// With no types, every event of the shift is returned.
func (s *Store) Query(ctx context.Context, shiftID int64, types ...EventType) ([]Event, error) {
	where, args := shiftFilter(shiftID, types)
	return s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events WHERE "+where+" ORDER BY ts ASC, id ASC", args...)
}

// Latest returns the newest event of the given types for the shift, or nil.
func (s *Store) Latest(ctx context.Context, shiftID int64, types ...EventType) (*Event, error) {
	where, args := shiftFilter(shiftID, types)
	events, err := s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events WHERE "+where+" ORDER BY ts DESC, id DESC LIMIT 1", args...)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// SessionEvents returns the events recorded against one packing attempt in insertion order.
func (s *Store) SessionEvents(ctx context.Context, sessionID int64) ([]Event, error) {
	return s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events WHERE session_id = ? ORDER BY ts ASC, id ASC", sessionID)
}

// CountSince counts events of type t with ts >= since, optionally limited to one worker.
func (s *Store) CountSince(ctx context.Context, t EventType, since float64, workerID string) (int, error) {
	ctx = ensureContext(ctx)
	query := "SELECT COUNT(1) FROM events WHERE type = ? AND ts >= ?"
	args := []any{string(t), since}
	if workerID != "" {
		query += " AND worker_id = ?"
		args = append(args, workerID)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func shiftFilter(shiftID int64, types []EventType) (string, []any) {
	where := "shift_id = ?"
	args := []any{shiftID}
	if len(types) > 0 {
		where += " AND type IN (" + makePlaceholders(len(types)) + ")"
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	return where, args
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev        Event
			typ       string
			shiftID   sql.NullInt64
			sessionID sql.NullInt64
			workerID  sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &typ, &shiftID, &sessionID, &workerID, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = EventType(typ)
		ev.ShiftID = shiftID.Int64
		ev.SessionID = int64Ptr(sessionID)
		ev.WorkerID = workerID.String
		events = append(events, ev)
	}
	return events, rows.Err()
}
