package api

import (
	"encoding/json"
	"strings"
	"testing"

	"packline/internal/kiosk"
	"packline/internal/ledger"
	"packline/internal/packaging"
	"packline/internal/timer"
)

func TestFromSnapshotCountsCompletedSteps(t *testing.T) {
	shift := int64(4)
	attempt := &packaging.Attempt{
		ID:           9,
		ShiftID:      &shift,
		SKU:          "LAMP-01",
		State:        packaging.StateStarted,
		Phase:        packaging.PhaseLayout,
		StepIndex:    1,
		StepsInPhase: 2,
		StartTime:    1_700_000_000,
	}
	age := int64(12)
	snap := kiosk.Snapshot{
		ObservedAt: 1_700_000_030,
		Status:     kiosk.StatusRunning,
		Attempt:    attempt,
		PackState:  packaging.StateStarted,
		Flags:      packaging.Flags(packaging.StateStarted),
		Steps: []packaging.StepView{
			{Index: 0, Step: packaging.Step{SlotID: "A1"}, Status: packaging.StepDone},
			{Index: 1, Step: packaging.Step{SlotID: "A2"}, Status: packaging.StepCurrent},
		},
		Shift:               timer.Totals{WorkSeconds: 125, IdleSeconds: 61, State: timer.StateWork},
		HeartbeatAgeSeconds: &age,
		ActiveShifts:        []ledger.Shift{{ID: 4, WorkerID: "W1", StartTime: 1_700_000_000, Active: true}},
	}

	dto := FromSnapshot(snap, kiosk.MasterStatus{Active: true, MasterID: "13540876", TimeoutMinutes: 15})
	if dto.CompletedSteps != 1 || dto.TotalSteps != 2 {
		t.Fatalf("unexpected step counts: %d/%d", dto.CompletedSteps, dto.TotalSteps)
	}
	if dto.Timer.WorkMinutes != 2 || dto.Timer.IdleMinutes != 1 {
		t.Fatalf("unexpected minutes: %+v", dto.Timer)
	}
	if dto.Attempt == nil || dto.Attempt.StartedAt != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("unexpected attempt: %+v", dto.Attempt)
	}
	if !dto.Flags.CanCloseBox || dto.Flags.CanPrintLabel {
		t.Fatalf("unexpected flags: %+v", dto.Flags)
	}
	if !dto.Master.Active || dto.Master.MasterID != "13540876" {
		t.Fatalf("unexpected master: %+v", dto.Master)
	}
	if len(dto.ActiveShifts) != 1 || !dto.ActiveShifts[0].Active {
		t.Fatalf("unexpected shifts: %+v", dto.ActiveShifts)
	}
}

func TestIdleSnapshotEncodesEmptyCollections(t *testing.T) {
	dto := FromSnapshot(kiosk.Snapshot{Status: kiosk.StatusIdle, Flags: packaging.Flags(packaging.StateNone)}, kiosk.MasterStatus{})
	raw, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, want := range []string{`"steps":[]`, `"activeShifts":[]`, `"canStartSku":true`, `"packState":"NONE"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
	if strings.Contains(body, `"attempt"`) {
		t.Fatalf("idle state must omit attempt: %s", body)
	}
}

func TestPackUIStateFlattensFlags(t *testing.T) {
	raw, err := json.Marshal(FromPackUIState(kiosk.PackUIState{
		PackState: packaging.StateLabelPrinted,
		Flags:     packaging.Flags(packaging.StateLabelPrinted),
	}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"canMarkTableEmpty":true`) || !strings.Contains(body, `"packState":"LABEL_PRINTED"`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestFromPlanListSelected(t *testing.T) {
	dto := FromPlanList(kiosk.PlanList{
		ShiftID:    3,
		Plans:      []kiosk.PlanSummary{{ID: 1, Name: "Morning", Count: 2}},
		SelectedID: 1,
		Selected:   &kiosk.PlanDetail{PlanSummary: kiosk.PlanSummary{ID: 1, Name: "Morning", Count: 2}, Items: []string{"A", "B"}},
	})
	if dto.SelectedPlan == nil || len(dto.SelectedPlan.Items) != 2 {
		t.Fatalf("unexpected selection: %+v", dto.SelectedPlan)
	}
	if len(dto.Plans) != 1 || dto.Plans[0].Name != "Morning" {
		t.Fatalf("unexpected plans: %+v", dto.Plans)
	}
}
