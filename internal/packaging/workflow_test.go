package packaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/packaging"
	"packline/internal/testsupport"
)

func newWorkflow(t *testing.T) (*packaging.Workflow, *ledger.Store, int64) {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	shift := testsupport.MustStartShift(t, store, "W1", "PACKING", 1)
	catalog, err := packaging.ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	return packaging.NewWorkflow(store, catalog, logging.NewNop()), store, shift
}

func owner(shift int64) packaging.Owner {
	return packaging.Owner{WorkerID: "W1", ShiftID: &shift}
}

func requireReason(t *testing.T, err error, reason error) {
	t.Helper()
	var te *packaging.TransitionError
	require.True(t, errors.As(err, &te), "expected TransitionError, got %v", err)
	assert.ErrorIs(t, err, reason)
}

func TestStartPreconditions(t *testing.T) {
	wf, _, shift := newWorkflow(t)
	ctx := context.Background()

	_, err := wf.Start(ctx, "   ", owner(shift), 10)
	requireReason(t, err, packaging.ErrEmptySKU)
	assert.Equal(t, packaging.StateNone, wf.State())

	attempt, err := wf.Start(ctx, "lamp-01", owner(shift), 10)
	require.NoError(t, err)
	assert.Equal(t, packaging.StateStarted, attempt.State)
	assert.Equal(t, packaging.PhaseLayout, attempt.Phase)
	assert.Equal(t, 3, attempt.StepsInPhase)
	require.NotNil(t, attempt.ShiftID)
	assert.Equal(t, shift, *attempt.ShiftID)

	_, err = wf.Start(ctx, "lamp-01", owner(shift), 11)
	requireReason(t, err, packaging.ErrAttemptActive)

	_, err = wf.Apply(ctx, packaging.EventCloseBox, 12)
	require.NoError(t, err)
	_, err = wf.Start(ctx, "lamp-01", owner(shift), 13)
	requireReason(t, err, packaging.ErrAttemptActive)

	_, err = wf.Apply(ctx, packaging.EventPrintLabel, 14)
	require.NoError(t, err)
	_, err = wf.Start(ctx, "lamp-01", owner(shift), 15)
	requireReason(t, err, packaging.ErrTableNotEmpty)

	done, err := wf.Apply(ctx, packaging.EventTableEmpty, 16)
	require.NoError(t, err)
	require.NotNil(t, done.EndTime)
	assert.Equal(t, 16.0, *done.EndTime)

	next, err := wf.Start(ctx, "OTHER-1", owner(shift), 17)
	require.NoError(t, err)
	assert.NotEqual(t, done.ID, next.ID)
}

func TestApplyRejectsIllegalEventWithoutChangingState(t *testing.T) {
	wf, store, shift := newWorkflow(t)
	ctx := context.Background()

	_, err := wf.Apply(ctx, packaging.EventCloseBox, 1)
	requireReason(t, err, packaging.ErrNoAttempt)

	attempt, err := wf.Start(ctx, "lamp-01", owner(shift), 2)
	require.NoError(t, err)

	_, err = wf.Apply(ctx, packaging.EventPrintLabel, 3)
	requireReason(t, err, packaging.ErrIllegalEvent)
	assert.Equal(t, packaging.StateStarted, wf.State())

	_, err = wf.Apply(ctx, packaging.EventStart, 3)
	requireReason(t, err, packaging.ErrEmptySKU)

	events, err := store.SessionEvents(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventStart, events[0].Type)
	assert.Equal(t, shift, events[0].ShiftID)
}

func TestTableEmptyEscapeHatch(t *testing.T) {
	wf, _, shift := newWorkflow(t)
	ctx := context.Background()

	_, err := wf.Start(ctx, "lamp-01", owner(shift), 1)
	require.NoError(t, err)
	attempt, err := wf.Apply(ctx, packaging.EventTableEmpty, 2)
	require.NoError(t, err)
	assert.False(t, attempt.Active())
	assert.Equal(t, packaging.Capabilities{CanStartSKU: true}, packaging.Flags(wf.State()))
}

func TestStepSubWorkflow(t *testing.T) {
	wf, store, shift := newWorkflow(t)
	ctx := context.Background()

	_, err := wf.CompleteStep(ctx, 1)
	requireReason(t, err, packaging.ErrNoAttempt)

	attempt, err := wf.Start(ctx, "lamp-01", owner(shift), 1)
	require.NoError(t, err)

	_, err = wf.AdvancePhase(ctx, 2)
	requireReason(t, err, packaging.ErrLayoutIncomplete)

	for i := 0; i < 3; i++ {
		res, err := wf.CompleteStep(ctx, float64(3+i))
		require.NoError(t, err)
		assert.Equal(t, i, res.Index)
		assert.Equal(t, attempt.Plan.Layout[i], res.Step)
	}
	_, err = wf.CompleteStep(ctx, 7)
	requireReason(t, err, packaging.ErrPhaseExhausted)

	packing, err := wf.AdvancePhase(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, packaging.PhasePacking, packing.Phase)
	assert.Equal(t, 0, packing.StepIndex)
	assert.Equal(t, 3, packing.StepsInPhase)

	_, err = wf.AdvancePhase(ctx, 9)
	requireReason(t, err, packaging.ErrNotInLayout)

	first, err := wf.CompleteStep(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "B1", first.Step.SlotID, "packing starts from the last layout slot")

	views := wf.Current().StepViews()
	require.Len(t, views, 3)
	assert.Equal(t, packaging.StepDone, views[0].Status)
	assert.Equal(t, packaging.StepCurrent, views[1].Status)
	assert.Equal(t, packaging.StepPending, views[2].Status)

	events, err := store.SessionEvents(ctx, attempt.ID)
	require.NoError(t, err)
	var stepEvent map[string]any
	for _, ev := range events {
		if ev.Type == ledger.EventStepCompleted {
			require.NoError(t, json.Unmarshal([]byte(ev.Payload), &stepEvent))
			break
		}
	}
	assert.Equal(t, "A1", stepEvent["slot_id"])
	assert.Equal(t, "BASE", stepEvent["part_id"])
	assert.Equal(t, "LAYOUT", stepEvent["phase"])
	assert.Equal(t, float64(0), stepEvent["step_index"])
	assert.Equal(t, "unchecked", stepEvent["verification"])
}

func TestRestoreResumesCurrentAttempt(t *testing.T) {
	wf, store, shift := newWorkflow(t)
	ctx := context.Background()

	_, err := wf.Start(ctx, "lamp-01", owner(shift), 1)
	require.NoError(t, err)
	_, err = wf.CompleteStep(ctx, 2)
	require.NoError(t, err)

	catalog, err := packaging.ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	resumed := packaging.NewWorkflow(store, catalog, logging.NewNop())
	require.NoError(t, resumed.Restore(ctx))

	cur := resumed.Current()
	require.NotNil(t, cur)
	assert.Equal(t, packaging.StateStarted, cur.State)
	assert.Equal(t, 1, cur.StepIndex)
	assert.Len(t, cur.Plan.Layout, 3)
}

func TestRecordTimingConfirmsDonePacks(t *testing.T) {
	wf, store, shift := newWorkflow(t)
	ctx := context.Background()

	attempt, err := wf.Start(ctx, "lamp-01", owner(shift), 1)
	require.NoError(t, err)
	require.NoError(t, wf.RecordTiming(ctx, packaging.Timing{WorktimeSec: 40, DowntimeSec: 5, Status: "done", FinishedAt: 46}))

	rec, err := store.Attempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, rec.WorktimeSec)
	assert.Equal(t, "done", rec.Status)
	assert.Equal(t, string(packaging.StateStarted), rec.State, "timing does not move the workflow")

	confirmed, err := store.CountSince(ctx, ledger.EventPackedConfirmed, 0, "W1")
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
}
