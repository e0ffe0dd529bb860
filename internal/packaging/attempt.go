package packaging

import "packline/internal/ledger"

// Phase is the step sub-workflow stage of an attempt.
type Phase string

const (
	PhaseLayout  Phase = "LAYOUT"
	PhasePacking Phase = "PACKING"
)

// Attempt is one SKU's pass through the workflow.
type Attempt struct {
	ID           int64
	UID          string
	ShiftID      *int64
	WorkerID     string
	SKU          string
	State        State
	Phase        Phase
	StepIndex    int
	StepsInPhase int
	StartTime    float64
	EndTime      *float64
	Plan         Plan

	// WorktimeSec, DowntimeSec and Status are stamped once the session timer finishes.
	WorktimeSec float64
	DowntimeSec float64
	Status      string
}

// Active reports whether the attempt has not yet reached TABLE_EMPTY.
func (a *Attempt) Active() bool {
	return a != nil && a.State != StateTableEmpty && a.State != StateNone
}

// StepsDone reports whether every packing step has been completed.
func (a *Attempt) StepsDone() bool {
	return a != nil && a.Phase == PhasePacking && a.StepIndex >= a.StepsInPhase
}

// CurrentStep returns the step awaiting completion, if any.
func (a *Attempt) CurrentStep() (Step, bool) {
	steps := a.Plan.Steps(a.Phase)
	if a.StepIndex < 0 || a.StepIndex >= len(steps) {
		return Step{}, false
	}
	return steps[a.StepIndex], true
}

// StepStatus is the UI status of one step.
type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepCurrent StepStatus = "current"
	StepPending StepStatus = "pending"
)

// StepView is a step annotated with its position and status in the current phase.
type StepView struct {
	Index  int
	Step   Step
	Status StepStatus
}

// StepViews lists the current phase's steps with their statuses.
func (a *Attempt) StepViews() []StepView {
	if a == nil {
		return nil
	}
	steps := a.Plan.Steps(a.Phase)
	views := make([]StepView, len(steps))
	for i, step := range steps {
		status := StepPending
		switch {
		case i < a.StepIndex:
			status = StepDone
		case i == a.StepIndex:
			status = StepCurrent
		}
		views[i] = StepView{Index: i, Step: step, Status: status}
	}
	return views
}

func (a *Attempt) clone() *Attempt {
	if a == nil {
		return nil
	}
	cp := *a
	if a.ShiftID != nil {
		id := *a.ShiftID
		cp.ShiftID = &id
	}
	if a.EndTime != nil {
		end := *a.EndTime
		cp.EndTime = &end
	}
	return &cp
}

func (a *Attempt) record() ledger.AttemptRecord {
	return ledger.AttemptRecord{
		ID:           a.ID,
		UID:          a.UID,
		ShiftID:      a.ShiftID,
		WorkerID:     a.WorkerID,
		SKU:          a.SKU,
		State:        string(a.State),
		Phase:        string(a.Phase),
		StepIndex:    a.StepIndex,
		StepsInPhase: a.StepsInPhase,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		WorktimeSec:  a.WorktimeSec,
		DowntimeSec:  a.DowntimeSec,
		Status:       a.Status,
	}
}

func (a *Attempt) shiftID() int64 {
	if a.ShiftID == nil {
		return 0
	}
	return *a.ShiftID
}

func attemptFromRecord(rec ledger.AttemptRecord, plan Plan) *Attempt {
	return &Attempt{
		ID:           rec.ID,
		UID:          rec.UID,
		ShiftID:      rec.ShiftID,
		WorkerID:     rec.WorkerID,
		SKU:          rec.SKU,
		State:        State(rec.State),
		Phase:        Phase(rec.Phase),
		StepIndex:    rec.StepIndex,
		StepsInPhase: rec.StepsInPhase,
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		Plan:         plan,
		WorktimeSec:  rec.WorktimeSec,
		DowntimeSec:  rec.DowntimeSec,
		Status:       rec.Status,
	}
}
