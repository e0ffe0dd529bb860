package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Shift is a worker's working period at one work centre.
type Shift struct {
	ID         int64
	WorkerID   string
	WorkCenter string
	StartTime  float64
	EndTime    *float64
	Active     bool
}

const shiftColumns = "id, worker_id, work_center, start_time, end_time, is_active"

// StartShift closes the worker's open shift on workCenter, if any, and opens a
// new one starting at ts. Both steps share one transaction.
func (s *Store) StartShift(ctx context.Context, workerID, workCenter string, ts float64) (int64, error) {
	workerID = strings.TrimSpace(workerID)
	workCenter = strings.TrimSpace(workCenter)
	if workerID == "" || workCenter == "" {
		return 0, fmt.Errorf("%w: worker and work centre are required", ErrInvalidArgument)
	}
	var id int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE worker_shifts SET end_time = ?, is_active = 0
			 WHERE worker_id = ? AND work_center = ? AND is_active = 1`,
			ts, workerID, workCenter,
		); err != nil {
			return fmt.Errorf("close previous shift: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO worker_shifts (worker_id, work_center, start_time, end_time, is_active)
			 VALUES (?, ?, ?, NULL, 1)`,
			workerID, workCenter, ts,
		)
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EndShift closes the worker's open shifts at ts. When centres are given only
// shifts on those centres are closed. It returns the number of shifts closed.
func (s *Store) EndShift(ctx context.Context, workerID string, centres []string, ts float64) (int, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return 0, nil
	}
	query := "UPDATE worker_shifts SET end_time = ?, is_active = 0 WHERE worker_id = ? AND is_active = 1"
	args := []any{ts, workerID}
	if len(centres) > 0 {
		query += " AND work_center IN (" + makePlaceholders(len(centres)) + ")"
		for _, c := range centres {
			args = append(args, c)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("end shift: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(changed), nil
}

// Shift loads one shift by identifier.
func (s *Store) Shift(ctx context.Context, id int64) (*Shift, error) {
	shifts, err := s.queryShifts(ctx, "SELECT "+shiftColumns+" FROM worker_shifts WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	return &shifts[0], nil
}

// IsOpen reports whether the shift exists and is still active.
func (s *Store) IsOpen(ctx context.Context, shiftID int64) (bool, error) {
	shift, err := s.Shift(ctx, shiftID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return shift.Active, nil
}

// EndTime returns the recorded end of a closed shift, or nil while it is open
// or unknown.
func (s *Store) EndTime(ctx context.Context, shiftID int64) (*float64, error) {
	shift, err := s.Shift(ctx, shiftID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if shift.Active {
		return nil, nil
	}
	return shift.EndTime, nil
}

// ActiveShifts lists open shifts, oldest first.
func (s *Store) ActiveShifts(ctx context.Context) ([]Shift, error) {
	return s.queryShifts(ctx, "SELECT "+shiftColumns+" FROM worker_shifts WHERE is_active = 1 ORDER BY start_time ASC, id ASC")
}

// RecentShifts lists the most recently started shifts, newest first.
func (s *Store) RecentShifts(ctx context.Context, limit int) ([]Shift, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryShifts(ctx, "SELECT "+shiftColumns+" FROM worker_shifts ORDER BY start_time DESC, id DESC LIMIT ?", limit)
}

// LatestActiveShiftID returns the worker's most recently started open shift.
func (s *Store) LatestActiveShiftID(ctx context.Context, workerID string) (int64, bool, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return 0, false, nil
	}
	ctx = ensureContext(ctx)
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM worker_shifts WHERE worker_id = ? AND is_active = 1
		 ORDER BY start_time DESC, id DESC LIMIT 1`, workerID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest active shift: %w", err)
	}
	return id, true, nil
}

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]Shift, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		var (
			shift  Shift
			end    sql.NullFloat64
			active int
		)
		if err := rows.Scan(&shift.ID, &shift.WorkerID, &shift.WorkCenter, &shift.StartTime, &end, &active); err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		shift.EndTime = floatPtr(end)
		shift.Active = active == 1
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}
