package packaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/textutil"
)

// AttemptStore persists attempts together with their ledger events.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, rec ledger.AttemptRecord, ev ledger.Event) (int64, int64, error)
	UpdateAttempt(ctx context.Context, rec ledger.AttemptRecord, events ...ledger.Event) ([]int64, error)
	OpenAttempts(ctx context.Context) ([]ledger.AttemptRecord, error)
	LatestAttempt(ctx context.Context) (*ledger.AttemptRecord, error)
}

// Verification is the outcome attached to a completed step. It is recorded
// for auditing and never blocks progress.
type Verification string

const VerificationUnchecked Verification = "unchecked"

// Owner identifies who an attempt is packed for.
type Owner struct {
	WorkerID string
	ShiftID  *int64
}

// StepResult describes a completed step.
type StepResult struct {
	AttemptID int64
	Index     int
	Step      Step
	Phase     Phase
	EventID   int64
}

// Workflow drives the current attempt. It is not safe for concurrent use;
// the kiosk engine serialises access.
type Workflow struct {
	store   AttemptStore
	catalog *Catalog
	current *Attempt
	logger  *slog.Logger
}

// NewWorkflow creates a workflow with no current attempt. Call Restore to
// resume from the ledger.
func NewWorkflow(store AttemptStore, catalog *Catalog, logger *slog.Logger) *Workflow {
	if catalog == nil {
		catalog = newCatalog(nil)
	}
	return &Workflow{
		store:   store,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "packaging"),
	}
}

// Restore loads the latest attempt from the store. More than one open attempt
// is reported as ErrMultipleOpen and nothing is loaded.
func (w *Workflow) Restore(ctx context.Context) error {
	open, err := w.store.OpenAttempts(ctx)
	if err != nil {
		return fmt.Errorf("load open attempts: %w", err)
	}
	if len(open) > 1 {
		return fmt.Errorf("%w: %d open", ErrMultipleOpen, len(open))
	}
	latest, err := w.store.LatestAttempt(ctx)
	if err != nil {
		return fmt.Errorf("load latest attempt: %w", err)
	}
	if latest == nil {
		w.current = nil
		return nil
	}
	w.current = attemptFromRecord(*latest, w.catalog.PlanFor(latest.SKU))
	return nil
}

// Current returns a copy of the current attempt, which may already be at TABLE_EMPTY.
func (w *Workflow) Current() *Attempt {
	return w.current.clone()
}

// State returns the current attempt's state, or StateNone.
func (w *Workflow) State() State {
	if w.current == nil {
		return StateNone
	}
	return w.current.State
}

// Start opens a new attempt for sku. The SKU is normalised as scanner input.
func (w *Workflow) Start(ctx context.Context, sku string, owner Owner, now float64) (*Attempt, error) {
	sku = textutil.NormalizeScan(sku)
	state := w.State()
	if sku == "" {
		return nil, reject(EventStart, state, ErrEmptySKU)
	}
	if w.current.Active() {
		if w.current.State == StateLabelPrinted {
			return nil, reject(EventStart, state, ErrTableNotEmpty)
		}
		return nil, reject(EventStart, state, ErrAttemptActive)
	}
	next, err := Next(state, EventStart)
	if err != nil {
		return nil, err
	}

	plan := w.catalog.PlanFor(sku)
	attempt := &Attempt{
		UID:          uuid.NewString(),
		ShiftID:      owner.ShiftID,
		WorkerID:     strings.TrimSpace(owner.WorkerID),
		SKU:          sku,
		State:        next,
		Phase:        PhaseLayout,
		StepsInPhase: len(plan.Layout),
		StartTime:    now,
		Plan:         plan,
	}
	ev := w.event(attempt, EventStart.LedgerType(), now, map[string]any{"sku": sku})
	id, _, err := w.store.CreateAttempt(ctx, attempt.record(), ev)
	if err != nil {
		return nil, fmt.Errorf("persist attempt start: %w", err)
	}
	attempt.ID = id
	w.current = attempt

	w.logger.Info("packing started",
		logging.Int64(logging.FieldAttemptID, id),
		logging.String(logging.FieldSKU, sku),
		logging.Int("layout_steps", len(plan.Layout)),
	)
	return attempt.clone(), nil
}

// Apply moves the current attempt along the transition table. START is not
// accepted here because it needs a SKU; use Start.
func (w *Workflow) Apply(ctx context.Context, ev Event, now float64) (*Attempt, error) {
	if w.current == nil {
		return nil, reject(ev, StateNone, ErrNoAttempt)
	}
	if ev == EventStart {
		return nil, reject(ev, w.current.State, ErrEmptySKU)
	}
	next, err := Next(w.current.State, ev)
	if err != nil {
		return nil, err
	}

	updated := w.current.clone()
	from := updated.State
	updated.State = next
	if next == StateTableEmpty {
		end := now
		updated.EndTime = &end
	}
	payload := map[string]any{"sku": updated.SKU, "from": from.String(), "to": next.String()}
	if _, err := w.store.UpdateAttempt(ctx, updated.record(), w.event(updated, ev.LedgerType(), now, payload)); err != nil {
		return nil, fmt.Errorf("persist %s: %w", ev, err)
	}
	w.current = updated

	w.logger.Info("packing transition",
		logging.Int64(logging.FieldAttemptID, updated.ID),
		logging.String("event", string(ev)),
		logging.String("from", from.String()),
		logging.String("to", next.String()),
	)
	return updated.clone(), nil
}

// CompleteStep records the current step as done and advances the index.
func (w *Workflow) CompleteStep(ctx context.Context, now float64) (StepResult, error) {
	if !w.current.Active() {
		return StepResult{}, reject(OpCompleteStep, w.State(), ErrNoAttempt)
	}
	cur := w.current
	if cur.StepIndex >= cur.StepsInPhase {
		return StepResult{}, reject(OpCompleteStep, cur.State, ErrPhaseExhausted)
	}
	step, ok := cur.CurrentStep()
	if !ok {
		return StepResult{}, reject(OpCompleteStep, cur.State, ErrPhaseExhausted)
	}

	updated := cur.clone()
	index := updated.StepIndex
	updated.StepIndex++
	payload := map[string]any{
		"slot_id":      step.SlotID,
		"part_id":      step.PartID,
		"phase":        string(updated.Phase),
		"step_index":   index,
		"verification": string(VerificationUnchecked),
	}
	ids, err := w.store.UpdateAttempt(ctx, updated.record(), w.event(updated, ledger.EventStepCompleted, now, payload))
	if err != nil {
		return StepResult{}, fmt.Errorf("persist step: %w", err)
	}
	w.current = updated

	res := StepResult{AttemptID: updated.ID, Index: index, Step: step, Phase: updated.Phase}
	if len(ids) > 0 {
		res.EventID = ids[0]
	}
	return res, nil
}

// AdvancePhase moves a finished LAYOUT phase into PACKING.
func (w *Workflow) AdvancePhase(ctx context.Context, now float64) (*Attempt, error) {
	if !w.current.Active() {
		return nil, reject(OpAdvancePhase, w.State(), ErrNoAttempt)
	}
	cur := w.current
	if cur.Phase != PhaseLayout {
		return nil, reject(OpAdvancePhase, cur.State, ErrNotInLayout)
	}
	if cur.StepIndex < cur.StepsInPhase {
		return nil, reject(OpAdvancePhase, cur.State, ErrLayoutIncomplete)
	}

	updated := cur.clone()
	updated.Phase = PhasePacking
	updated.StepIndex = 0
	updated.StepsInPhase = len(updated.Plan.Packing)
	payload := map[string]any{"from": string(PhaseLayout), "to": string(PhasePacking)}
	if _, err := w.store.UpdateAttempt(ctx, updated.record(), w.event(updated, ledger.EventPhaseChanged, now, payload)); err != nil {
		return nil, fmt.Errorf("persist phase change: %w", err)
	}
	w.current = updated
	return updated.clone(), nil
}

// Timing is the session timer summary stamped on an attempt when it finishes.
type Timing struct {
	WorktimeSec float64
	DowntimeSec float64
	Status      string
	FinishedAt  float64
}

// RecordTiming persists t on the current attempt. A "done" status also appends
// PACKED_CONFIRMED. It does not change the workflow state.
func (w *Workflow) RecordTiming(ctx context.Context, t Timing) error {
	if w.current == nil {
		return errors.New("record timing: no attempt")
	}
	updated := w.current.clone()
	updated.WorktimeSec = t.WorktimeSec
	updated.DowntimeSec = t.DowntimeSec
	updated.Status = t.Status

	var events []ledger.Event
	if t.Status == "done" {
		events = append(events, w.event(updated, ledger.EventPackedConfirmed, t.FinishedAt, map[string]any{
			"sku":          updated.SKU,
			"worktime_sec": t.WorktimeSec,
			"downtime_sec": t.DowntimeSec,
		}))
	}
	if _, err := w.store.UpdateAttempt(ctx, updated.record(), events...); err != nil {
		return fmt.Errorf("persist attempt timing: %w", err)
	}
	w.current = updated
	return nil
}

func (w *Workflow) event(a *Attempt, t ledger.EventType, now float64, payload map[string]any) ledger.Event {
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte("{}")
	}
	return ledger.Event{
		Timestamp: now,
		Type:      t,
		ShiftID:   a.shiftID(),
		WorkerID:  a.WorkerID,
		Payload:   string(encoded),
	}
}
