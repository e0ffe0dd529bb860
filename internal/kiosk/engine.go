package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"packline/internal/clock"
	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/packaging"
	"packline/internal/sessiontimer"
	"packline/internal/textutil"
	"packline/internal/timer"
)

// Ledger is the persistence the engine needs: attempts, timer events and shifts.
type Ledger interface {
	packaging.AttemptStore
	timer.EventLog
	timer.ShiftOracle
	StartShift(ctx context.Context, workerID, workCenter string, ts float64) (int64, error)
	EndShift(ctx context.Context, workerID string, centres []string, ts float64) (int, error)
	LatestActiveShiftID(ctx context.Context, workerID string) (int64, bool, error)
	ActiveShifts(ctx context.Context) ([]ledger.Shift, error)
	CountSince(ctx context.Context, t ledger.EventType, since float64, workerID string) (int, error)
}

// Deps wires an Engine. Store is required; everything else has a default.
type Deps struct {
	Store   Ledger
	Catalog *packaging.Catalog
	Clock   clock.Clock
	Logger  *slog.Logger
	Meter   metric.Meter

	// WorkCenter is used when StartShift is called without one.
	WorkCenter string
	// IdleThreshold is the session timer inactivity threshold in seconds.
	IdleThreshold float64
	// HeartbeatTimeout is the auto-idle heartbeat age in seconds; zero disables it.
	HeartbeatTimeout float64
}

const (
	defaultIdleThreshold = 5.0
	defaultSource        = "kiosk"
)

// Status values reported in snapshots besides the session timer statuses.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
)

// PackStats are per-SKU pack durations in whole seconds.
type PackStats struct {
	LastSeconds int64
	BestSeconds int64
	AvgSeconds  int64
	Count       int
}

func (s PackStats) record(total int64) PackStats {
	s.LastSeconds = total
	if s.Count == 0 || total < s.BestSeconds {
		s.BestSeconds = total
	}
	if s.Count == 0 {
		s.AvgSeconds = total
	} else {
		s.AvgSeconds = (s.AvgSeconds + total) / 2
	}
	s.Count++
	return s
}

// Engine coordinates the packing workflow, session timer and shift timer for
// one workstation.
type Engine struct {
	mu sync.Mutex

	store    Ledger
	workflow *packaging.Workflow
	timers   *timer.Engine
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics

	workCenter       string
	idleThreshold    float64
	heartbeatTimeout float64

	workerID   string
	workerName string
	session    *sessiontimer.Timer
	stats      map[string]PackStats
}

// New builds an engine and restores the latest attempt from the ledger. An
// attempt that is still open gets a fresh session timer unless its timing was
// already recorded, in which case the finished timer is rebuilt from the row.
func New(ctx context.Context, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("kiosk engine requires a ledger")
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.IdleThreshold <= 0 {
		deps.IdleThreshold = defaultIdleThreshold
	}
	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	e := &Engine{
		store:            deps.Store,
		workflow:         packaging.NewWorkflow(deps.Store, deps.Catalog, deps.Logger),
		timers:           timer.NewEngine(deps.Store, deps.Store, deps.Logger),
		clock:            deps.Clock,
		logger:           logging.NewComponentLogger(deps.Logger, "kiosk"),
		metrics:          m,
		workCenter:       textutil.NormalizeWorkCenter(deps.WorkCenter),
		idleThreshold:    deps.IdleThreshold,
		heartbeatTimeout: deps.HeartbeatTimeout,
		stats:            make(map[string]PackStats),
	}
	if err := e.workflow.Restore(ctx); err != nil {
		if errors.Is(err, packaging.ErrMultipleOpen) {
			return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
		}
		return nil, fmt.Errorf("restore attempt: %w", err)
	}
	if current := e.workflow.Current(); current.Active() {
		if current.Status != "" {
			e.session = sessiontimer.Restored(current.StartTime, current.WorktimeSec, current.DowntimeSec, current.Status)
		} else {
			session := sessiontimer.New(e.clock.Now())
			session.StartTime = current.StartTime
			e.session = session
		}
		e.workerID = current.WorkerID
		e.logger.Info("resumed open attempt",
			logging.Int64(logging.FieldAttemptID, current.ID),
			logging.String(logging.FieldSKU, current.SKU),
			logging.String("state", current.State.String()),
			logging.String("session_status", current.Status),
		)
	}
	return e, nil
}

// SetWorker makes workerID the current worker. The name defaults to the ID.
func (e *Engine) SetWorker(workerID, workerName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setWorkerLocked(workerID, workerName)
}

func (e *Engine) setWorkerLocked(workerID, workerName string) error {
	id := textutil.NormalizeScan(workerID)
	if id == "" {
		return fmt.Errorf("%w: worker id is required", ErrValidation)
	}
	name := strings.TrimSpace(workerName)
	if name == "" {
		name = id
	}
	e.workerID = id
	e.workerName = name
	return nil
}

// Worker returns the current worker ID and display name.
func (e *Engine) Worker() (string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workerID, e.workerName
}

// StartShift opens a shift for the worker on workCenter, closing the worker's
// previous open shift there. The first worker to open a shift becomes the
// current worker.
func (e *Engine) StartShift(ctx context.Context, workerID, workCenter string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wid := textutil.NormalizeScan(workerID)
	centre := textutil.NormalizeWorkCenter(workCenter)
	if centre == "" {
		centre = e.workCenter
	}
	if wid == "" || centre == "" {
		return 0, fmt.Errorf("%w: worker id and work centre are required", ErrValidation)
	}
	id, err := e.store.StartShift(ctx, wid, centre, e.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("start shift: %w", err)
	}
	if e.workerID == "" {
		_ = e.setWorkerLocked(wid, "")
	}
	logging.WithContext(ctx, e.logger).Info("shift started",
		logging.Int64(logging.FieldShiftID, id),
		logging.String(logging.FieldWorkerID, wid),
		logging.String("work_center", centre),
	)
	return id, nil
}

// EndShift closes the worker's open shifts on the given centres, or all of
// them when none are given, and returns how many were closed.
func (e *Engine) EndShift(ctx context.Context, workerID string, centres []string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wid := textutil.NormalizeScan(workerID)
	if wid == "" {
		return 0, fmt.Errorf("%w: worker id is required", ErrValidation)
	}
	closed, err := e.store.EndShift(ctx, wid, textutil.NormalizeWorkCenters(centres), e.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("end shift: %w", err)
	}
	logging.WithContext(ctx, e.logger).Info("shift ended",
		logging.String(logging.FieldWorkerID, wid),
		logging.Int("closed", closed),
	)
	return closed, nil
}

// Start opens a packing attempt for sku, bound to the current worker's latest
// open shift if there is one, and starts its session timer.
func (e *Engine) Start(ctx context.Context, sku string) (*packaging.Attempt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(ctx, sku)
}

func (e *Engine) startLocked(ctx context.Context, sku string) (*packaging.Attempt, error) {
	now := e.clock.Now()
	owner := packaging.Owner{WorkerID: e.workerID}
	if e.workerID != "" {
		id, ok, err := e.store.LatestActiveShiftID(ctx, e.workerID)
		if err != nil {
			return nil, fmt.Errorf("resolve shift: %w", err)
		}
		if ok {
			owner.ShiftID = &id
		}
	}

	attempt, err := e.workflow.Start(ctx, sku, owner, now)
	if err != nil {
		return nil, e.rejected(ctx, string(packaging.EventStart), err)
	}
	e.session = sessiontimer.New(now)
	e.metrics.transition(ctx, string(packaging.EventStart))
	return attempt, nil
}

// ApplyEvent applies a workflow event to the current attempt. Reaching
// TABLE_EMPTY finishes the session timer with status done unless it already
// finished.
func (e *Engine) ApplyEvent(ctx context.Context, ev packaging.Event) (*packaging.Attempt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	attempt, err := e.workflow.Apply(ctx, ev, now)
	if err != nil {
		return nil, e.rejected(ctx, string(ev), err)
	}
	e.metrics.transition(ctx, string(ev))
	if e.session != nil {
		e.session.Activity(now, e.idleThreshold)
	}
	if attempt.State == packaging.StateTableEmpty {
		if err := e.finishLocked(ctx, sessiontimer.StatusDone, now); err != nil {
			return nil, err
		}
		attempt = e.workflow.Current()
	}
	return attempt, nil
}

// CompleteStep marks the current step done and counts it as worker activity.
func (e *Engine) CompleteStep(ctx context.Context) (packaging.StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	res, err := e.workflow.CompleteStep(ctx, now)
	if err != nil {
		return packaging.StepResult{}, e.rejected(ctx, string(packaging.OpCompleteStep), err)
	}
	e.metrics.transition(ctx, string(packaging.OpCompleteStep))
	if e.session != nil {
		e.session.Activity(now, e.idleThreshold)
	}
	return res, nil
}

// AdvancePhase moves a completed layout into the packing phase.
func (e *Engine) AdvancePhase(ctx context.Context) (*packaging.Attempt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	attempt, err := e.workflow.AdvancePhase(ctx, now)
	if err != nil {
		return nil, e.rejected(ctx, string(packaging.OpAdvancePhase), err)
	}
	e.metrics.transition(ctx, string(packaging.OpAdvancePhase))
	if e.session != nil {
		e.session.Activity(now, e.idleThreshold)
	}
	return attempt, nil
}

// Finish stops the session timer with status and stamps its totals on the
// attempt. It reports false when there was no running session.
func (e *Engine) Finish(ctx context.Context, status string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.Finished() {
		return false, nil
	}
	if err := e.finishLocked(ctx, status, e.clock.Now()); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) finishLocked(ctx context.Context, status string, now float64) error {
	if e.session == nil || e.session.Finished() {
		return nil
	}
	status = strings.ToLower(strings.TrimSpace(status))
	finished := *e.session
	finished.Finish(now, e.idleThreshold, status)

	attempt := e.workflow.Current()
	if attempt == nil {
		return fmt.Errorf("%w: session timer without attempt", ErrInvariant)
	}
	if err := e.workflow.RecordTiming(ctx, packaging.Timing{
		WorktimeSec: finished.WorktimeSec,
		DowntimeSec: finished.DowntimeSec,
		Status:      finished.Status,
		FinishedAt:  *finished.FinishTime,
	}); err != nil {
		return err
	}
	e.session = &finished

	total := int64(finished.Total())
	e.stats[attempt.SKU] = e.stats[attempt.SKU].record(total)
	e.metrics.finished(ctx, attempt.SKU, finished.Status, finished.Total())
	logging.WithContext(ctx, e.logger).Info("packing finished",
		logging.Int64(logging.FieldAttemptID, attempt.ID),
		logging.String(logging.FieldSKU, attempt.SKU),
		logging.String("status", finished.Status),
		logging.Seconds("worktime", finished.WorktimeSec),
		logging.Seconds("downtime", finished.DowntimeSec),
		logging.Timestamp("finished_at", *finished.FinishTime),
	)
	return nil
}

// RecordTimerState records a work or idle transition for the bound shift.
// It reports false when the shift was already in that state.
func (e *Engine) RecordTimerState(ctx context.Context, state timer.State, reason string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	shiftID, workerID, err := e.openShiftLocked(ctx)
	if err != nil {
		return false, err
	}
	return e.timers.RecordState(ctx, shiftID, state, reason, e.clock.Now(), workerID)
}

// RecordHeartbeat appends a liveness signal for the bound shift.
func (e *Engine) RecordHeartbeat(ctx context.Context, source string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	shiftID, workerID, err := e.openShiftLocked(ctx)
	if err != nil {
		return 0, err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = defaultSource
	}
	id, err := e.timers.RecordHeartbeat(ctx, shiftID, e.clock.Now(), source, workerID)
	if err != nil {
		return 0, err
	}
	e.metrics.heartbeat(ctx, source)
	return id, nil
}

// ComputeWorkIdle replays shiftID's timer events as of now.
func (e *Engine) ComputeWorkIdle(ctx context.Context, shiftID int64) (timer.Totals, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timers.Compute(ctx, shiftID, e.clock.Now(), e.heartbeatTimeout)
}

// openShiftLocked resolves the shift timer writes are bound to: the current
// attempt's shift, or else the current worker's latest open shift.
func (e *Engine) openShiftLocked(ctx context.Context) (int64, string, error) {
	var (
		shiftID  int64
		workerID = e.workerID
	)
	if current := e.workflow.Current(); current.Active() && current.ShiftID != nil {
		shiftID = *current.ShiftID
		workerID = current.WorkerID
	} else if e.workerID != "" {
		id, ok, err := e.store.LatestActiveShiftID(ctx, e.workerID)
		if err != nil {
			return 0, "", fmt.Errorf("resolve shift: %w", err)
		}
		if ok {
			shiftID = id
		}
	}
	if shiftID <= 0 {
		return 0, "", ErrNoShift
	}
	open, err := e.store.IsOpen(ctx, shiftID)
	if err != nil {
		return 0, "", fmt.Errorf("check shift: %w", err)
	}
	if !open {
		return 0, "", fmt.Errorf("%w: shift %d", ErrShiftClosed, shiftID)
	}
	return shiftID, workerID, nil
}

// rejected classifies a workflow error, counting state machine refusals and
// mapping ledger inconsistencies onto ErrInvariant.
func (e *Engine) rejected(ctx context.Context, op string, err error) error {
	var terr *packaging.TransitionError
	switch {
	case errors.As(err, &terr):
		e.metrics.rejection(ctx, op)
		logging.WithContext(ctx, e.logger).Debug("packing operation rejected",
			logging.String("op", op),
			logging.String("state", terr.State.String()),
			logging.Error(terr.Reason),
		)
		return err
	case errors.Is(err, ledger.ErrOpenAttempt):
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	default:
		return err
	}
}
