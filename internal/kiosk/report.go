package kiosk

import (
	"context"
	"fmt"
	"log/slog"

	"packline/internal/clock"
	"packline/internal/ledger"
	"packline/internal/timer"
)

// ReportStore is the read side of the ledger used for shift reports.
type ReportStore interface {
	timer.EventLog
	timer.ShiftOracle
	Shift(ctx context.Context, id int64) (*ledger.Shift, error)
	RecentShifts(ctx context.Context, limit int) ([]ledger.Shift, error)
	ShiftAttempts(ctx context.Context, shiftID int64) ([]ledger.AttemptRecord, error)
}

// ShiftReport summarises one shift from the ledger.
type ShiftReport struct {
	Shift    ledger.Shift
	Totals   timer.Totals
	Attempts int
	Packed   int
}

// Reporter builds shift reports. It holds no state and needs no engine.
type Reporter struct {
	store            ReportStore
	timers           *timer.Engine
	clock            clock.Clock
	heartbeatTimeout float64
}

// NewReporter builds a reporter over store.
func NewReporter(store ReportStore, clk clock.Clock, logger *slog.Logger, heartbeatTimeout float64) *Reporter {
	if clk == nil {
		clk = clock.System{}
	}
	return &Reporter{
		store:            store,
		timers:           timer.NewEngine(store, store, logger),
		clock:            clk,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// Shift reports the shift with the given identifier.
func (r *Reporter) Shift(ctx context.Context, id int64) (ShiftReport, error) {
	shift, err := r.store.Shift(ctx, id)
	if err != nil {
		return ShiftReport{}, err
	}
	return r.build(ctx, *shift)
}

// Recent reports the most recently started shifts, newest first.
func (r *Reporter) Recent(ctx context.Context, limit int) ([]ShiftReport, error) {
	shifts, err := r.store.RecentShifts(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ShiftReport, 0, len(shifts))
	for _, shift := range shifts {
		rep, err := r.build(ctx, shift)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

func (r *Reporter) build(ctx context.Context, shift ledger.Shift) (ShiftReport, error) {
	totals, err := r.timers.Compute(ctx, shift.ID, r.clock.Now(), r.heartbeatTimeout)
	if err != nil {
		return ShiftReport{}, fmt.Errorf("shift %d totals: %w", shift.ID, err)
	}
	attempts, err := r.store.ShiftAttempts(ctx, shift.ID)
	if err != nil {
		return ShiftReport{}, fmt.Errorf("shift %d attempts: %w", shift.ID, err)
	}
	packed, err := r.store.Query(ctx, shift.ID, ledger.EventPackedConfirmed)
	if err != nil {
		return ShiftReport{}, fmt.Errorf("shift %d packed: %w", shift.ID, err)
	}
	return ShiftReport{Shift: shift, Totals: totals, Attempts: len(attempts), Packed: len(packed)}, nil
}
