package kiosk

import (
	"context"
	"fmt"
	"time"

	"packline/internal/clock"
	"packline/internal/ledger"
	"packline/internal/packaging"
	"packline/internal/sessiontimer"
	"packline/internal/timer"
)

// Snapshot is the kiosk state shown to the operator.
type Snapshot struct {
	ObservedAt   float64
	WorkerID     string
	WorkerName   string
	ShiftID      int64
	ShiftActive  bool
	ActiveShifts []ledger.Shift

	// Status is idle, running, or the finished session's status.
	Status    string
	Attempt   *packaging.Attempt
	PackState packaging.State
	Flags     packaging.Capabilities
	Steps     []packaging.StepView

	StartedAt          *float64
	SessionWorkSeconds int64
	SessionIdleSeconds int64

	Shift               timer.Totals
	HeartbeatAgeSeconds *int64
	Stats               PackStats
	// PacksToday counts packs confirmed done since local midnight.
	PacksToday          int
}

// PackUIState is the compact workflow view: the open attempt, if any, and the
// capabilities of the current or most recent attempt's state.
type PackUIState struct {
	Active    *packaging.Attempt
	PackState packaging.State
	Flags     packaging.Capabilities
}

// State observes the session timer, auto-finishes an attempt whose packing
// steps are all complete and returns a snapshot.
func (e *Engine) State(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if current := e.workflow.Current(); e.session != nil && !e.session.Finished() {
		e.session.Observe(now, e.idleThreshold)
		if current.StepsDone() {
			if err := e.finishLocked(ctx, sessiontimer.StatusDone, now); err != nil {
				return Snapshot{}, err
			}
		}
	}

	snap := Snapshot{
		ObservedAt: now,
		WorkerID:   e.workerID,
		WorkerName: e.workerName,
		Status:     StatusIdle,
	}

	shifts, err := e.store.ActiveShifts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list active shifts: %w", err)
	}
	snap.ActiveShifts = shifts
	snap.ShiftActive = len(shifts) > 0

	packs, err := e.store.CountSince(ctx, ledger.EventPackedConfirmed, dayStart(now), "")
	if err != nil {
		return Snapshot{}, err
	}
	snap.PacksToday = packs

	current := e.workflow.Current()
	if current != nil {
		snap.Attempt = current
		snap.PackState = current.State
		snap.Steps = current.StepViews()
		snap.Stats = e.stats[current.SKU]
	}
	snap.Flags = packaging.Flags(snap.PackState)

	if e.session != nil {
		snap.SessionWorkSeconds = int64(e.session.WorktimeSec)
		snap.SessionIdleSeconds = int64(e.session.DowntimeSec)
		if e.session.Finished() {
			snap.Status = e.session.Status
		} else {
			snap.Status = StatusRunning
			start := e.session.StartTime
			snap.StartedAt = &start
		}
	}

	shiftID, err := e.timerShiftLocked(ctx, current, shifts)
	if err != nil {
		return Snapshot{}, err
	}
	snap.ShiftID = shiftID
	if shiftID > 0 {
		totals, err := e.timers.Compute(ctx, shiftID, now, e.heartbeatTimeout)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Shift = totals
		age, ok, err := e.timers.HeartbeatAge(ctx, shiftID, now)
		if err != nil {
			return Snapshot{}, err
		}
		if ok {
			seconds := int64(age)
			snap.HeartbeatAgeSeconds = &seconds
		}
	}
	return snap, nil
}

// timerShiftLocked picks the shift whose totals the snapshot shows: the
// current attempt's, then the worker's latest open shift, then the newest
// open shift.
func (e *Engine) timerShiftLocked(ctx context.Context, current *packaging.Attempt, shifts []ledger.Shift) (int64, error) {
	if current.Active() && current.ShiftID != nil {
		return *current.ShiftID, nil
	}
	if e.workerID != "" {
		id, ok, err := e.store.LatestActiveShiftID(ctx, e.workerID)
		if err != nil {
			return 0, fmt.Errorf("resolve shift: %w", err)
		}
		if ok {
			return id, nil
		}
	}
	if len(shifts) > 0 {
		return shifts[len(shifts)-1].ID, nil
	}
	return 0, nil
}

// UIState returns the open attempt and the capability flags.
func (e *Engine) UIState() PackUIState {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.workflow.Current()
	view := PackUIState{PackState: e.workflow.State()}
	if current.Active() {
		view.Active = current
	}
	view.Flags = packaging.Flags(view.PackState)
	return view
}

// Steps returns the open attempt with its current phase's step views.
func (e *Engine) Steps() (*packaging.Attempt, []packaging.StepView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.workflow.Current()
	if !current.Active() {
		return nil, nil, ErrNoActiveAttempt
	}
	return current, current.StepViews(), nil
}

// Stats returns the pack statistics recorded for sku since the engine started.
func (e *Engine) Stats(sku string) PackStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats[sku]
}

// dayStart returns local midnight of the day containing now.
func dayStart(now float64) float64 {
	t := clock.Time(now).In(time.Local)
	return clock.Seconds(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()))
}
