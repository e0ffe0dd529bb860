package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AttemptRecord is the persisted row for one SKU's pass through the packing
// workflow. State and Phase hold the workflow's string names.
type AttemptRecord struct {
	ID           int64
	UID          string
	ShiftID      *int64
	WorkerID     string
	SKU          string
	State        string
	Phase        string
	StepIndex    int
	StepsInPhase int
	StartTime    float64
	EndTime      *float64
	WorktimeSec  float64
	DowntimeSec  float64
	Status       string
}

// ClosedAttemptState is the workflow state that ends an attempt.
const ClosedAttemptState = "TABLE_EMPTY"

// ErrOpenAttempt is returned when creating an attempt while another is still open.
var ErrOpenAttempt = errors.New("another attempt is still open")

const attemptColumns = `id, uid, shift_id, worker_id, sku, state, phase, step_index, steps_in_phase,
	start_time, end_time, worktime_sec, downtime_sec, status`

// CreateAttempt inserts rec and appends ev bound to the new attempt in the same
// transaction. It refuses when any attempt is still open.
func (s *Store) CreateAttempt(ctx context.Context, rec AttemptRecord, ev Event) (int64, int64, error) {
	if rec.SKU == "" || rec.UID == "" {
		return 0, 0, fmt.Errorf("%w: attempt requires sku and uid", ErrInvalidArgument)
	}
	if err := validateEvent(ev); err != nil {
		return 0, 0, err
	}
	var attemptID, eventID int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var open int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM pack_attempts WHERE state <> ?", ClosedAttemptState,
		).Scan(&open); err != nil {
			return fmt.Errorf("count open attempts: %w", err)
		}
		if open > 0 {
			return ErrOpenAttempt
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO pack_attempts (uid, shift_id, worker_id, sku, state, phase, step_index,
				steps_in_phase, start_time, end_time, worktime_sec, downtime_sec, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.UID, nullableIDPtr(rec.ShiftID), nullableString(rec.WorkerID), rec.SKU, rec.State, rec.Phase,
			rec.StepIndex, rec.StepsInPhase, rec.StartTime, nullableFloat(rec.EndTime),
			rec.WorktimeSec, rec.DowntimeSec, nullableString(rec.Status),
		)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if attemptID, err = res.LastInsertId(); err != nil {
			return err
		}
		sid := attemptID
		ev.SessionID = &sid
		eventID, err = insertEvent(ctx, tx, ev)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return attemptID, eventID, nil
}

// UpdateAttempt persists the mutable columns of rec and appends events bound
// to it, all in one transaction. It returns the appended event identifiers.
func (s *Store) UpdateAttempt(ctx context.Context, rec AttemptRecord, events ...Event) ([]int64, error) {
	for _, ev := range events {
		if err := validateEvent(ev); err != nil {
			return nil, err
		}
	}
	var ids []int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		ids = ids[:0]
		res, err := tx.ExecContext(ctx,
			`UPDATE pack_attempts SET state = ?, phase = ?, step_index = ?, steps_in_phase = ?,
				end_time = ?, worktime_sec = ?, downtime_sec = ?, status = ?
			 WHERE id = ?`,
			rec.State, rec.Phase, rec.StepIndex, rec.StepsInPhase, nullableFloat(rec.EndTime),
			rec.WorktimeSec, rec.DowntimeSec, nullableString(rec.Status), rec.ID,
		)
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("attempt %d: %w", rec.ID, ErrNotFound)
		}
		for _, ev := range events {
			sid := rec.ID
			ev.SessionID = &sid
			id, err := insertEvent(ctx, tx, ev)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Attempt loads one attempt by identifier.
func (s *Store) Attempt(ctx context.Context, id int64) (*AttemptRecord, error) {
	recs, err := s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM pack_attempts WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("attempt %d: %w", id, ErrNotFound)
	}
	return &recs[0], nil
}

// OpenAttempts lists attempts that have not reached the closed state.
func (s *Store) OpenAttempts(ctx context.Context) ([]AttemptRecord, error) {
	return s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM pack_attempts WHERE state <> ? ORDER BY id ASC", ClosedAttemptState)
}

// LatestAttempt returns the most recently created attempt, or nil.
func (s *Store) LatestAttempt(ctx context.Context) (*AttemptRecord, error) {
	recs, err := s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM pack_attempts ORDER BY id DESC LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// ShiftAttempts lists a shift's attempts in creation order.
func (s *Store) ShiftAttempts(ctx context.Context, shiftID int64) ([]AttemptRecord, error) {
	return s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM pack_attempts WHERE shift_id = ? ORDER BY id ASC", shiftID)
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]AttemptRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var recs []AttemptRecord
	for rows.Next() {
		var (
			rec      AttemptRecord
			shiftID  sql.NullInt64
			workerID sql.NullString
			end      sql.NullFloat64
			status   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UID, &shiftID, &workerID, &rec.SKU, &rec.State, &rec.Phase,
			&rec.StepIndex, &rec.StepsInPhase, &rec.StartTime, &end, &rec.WorktimeSec, &rec.DowntimeSec, &status,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.ShiftID = int64Ptr(shiftID)
		rec.WorkerID = workerID.String
		rec.EndTime = floatPtr(end)
		rec.Status = status.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
