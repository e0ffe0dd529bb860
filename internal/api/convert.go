package api

import (
	"packline/internal/clock"
	"packline/internal/kiosk"
	"packline/internal/ledger"
	"packline/internal/packaging"
	"packline/internal/timer"
)

func formatEpoch(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return clock.Time(seconds).UTC().Format(dateTimeFormat)
}

// FromShift converts a ledger shift.
func FromShift(shift ledger.Shift) Shift {
	dto := Shift{
		ID:         shift.ID,
		WorkerID:   shift.WorkerID,
		WorkCenter: shift.WorkCenter,
		StartedAt:  formatEpoch(shift.StartTime),
		Active:     shift.Active,
	}
	if shift.EndTime != nil {
		dto.EndedAt = formatEpoch(*shift.EndTime)
	}
	return dto
}

// FromShifts converts a slice of shifts; the result is never nil.
func FromShifts(shifts []ledger.Shift) []Shift {
	out := make([]Shift, 0, len(shifts))
	for _, s := range shifts {
		out = append(out, FromShift(s))
	}
	return out
}

// FromAttempt converts a packing attempt.
func FromAttempt(a *packaging.Attempt) Attempt {
	if a == nil {
		return Attempt{}
	}
	dto := Attempt{
		ID:              a.ID,
		UID:             a.UID,
		ShiftID:         a.ShiftID,
		WorkerID:        a.WorkerID,
		SKU:             a.SKU,
		Title:           a.Plan.Title,
		State:           a.State.String(),
		Phase:           string(a.Phase),
		StepIndex:       a.StepIndex,
		StepsInPhase:    a.StepsInPhase,
		StartedAt:       formatEpoch(a.StartTime),
		StartedAtEpoch:  a.StartTime,
		WorktimeSeconds: a.WorktimeSec,
		DowntimeSeconds: a.DowntimeSec,
		Status:          a.Status,
	}
	if a.EndTime != nil {
		dto.EndedAt = formatEpoch(*a.EndTime)
	}
	return dto
}

func attemptPtr(a *packaging.Attempt) *Attempt {
	if a == nil {
		return nil
	}
	dto := FromAttempt(a)
	return &dto
}

// FromStepViews converts step views; the result is never nil.
func FromStepViews(views []packaging.StepView) []Step {
	out := make([]Step, 0, len(views))
	for _, v := range views {
		out = append(out, Step{
			Index:  v.Index,
			SlotID: v.Step.SlotID,
			PartID: v.Step.PartID,
			Title:  v.Step.Title,
			Status: string(v.Status),
		})
	}
	return out
}

// FromFlags converts workflow capabilities.
func FromFlags(c packaging.Capabilities) Flags {
	return Flags{
		CanStartSKU:       c.CanStartSKU,
		CanMarkTableEmpty: c.CanMarkTableEmpty,
		CanCloseBox:       c.CanCloseBox,
		CanPrintLabel:     c.CanPrintLabel,
	}
}

// FromTotals converts timer totals and an optional heartbeat age.
func FromTotals(t timer.Totals, heartbeatAge *int64) ShiftTimer {
	return ShiftTimer{
		WorkSeconds:         t.WorkSeconds,
		IdleSeconds:         t.IdleSeconds,
		WorkMinutes:         t.WorkSeconds / 60,
		IdleMinutes:         t.IdleSeconds / 60,
		State:               string(t.State),
		AutoIdle:            t.AutoIdle,
		HeartbeatAgeSeconds: heartbeatAge,
	}
}

// FromMaster converts the master session status.
func FromMaster(m kiosk.MasterStatus) Master {
	return Master{Active: m.Active, MasterID: m.MasterID, TimeoutMinutes: m.TimeoutMinutes}
}

// FromSnapshot converts an engine snapshot and the master session into the kiosk screen state.
func FromSnapshot(s kiosk.Snapshot, master kiosk.MasterStatus) KioskState {
	dto := KioskState{
		ObservedAt:         formatEpoch(s.ObservedAt),
		WorkerID:           s.WorkerID,
		WorkerName:         s.WorkerName,
		ShiftID:            s.ShiftID,
		ShiftActive:        s.ShiftActive,
		ActiveShifts:       FromShifts(s.ActiveShifts),
		Status:             s.Status,
		Attempt:            attemptPtr(s.Attempt),
		PackState:          s.PackState.String(),
		Flags:              FromFlags(s.Flags),
		Steps:              FromStepViews(s.Steps),
		TotalSteps:         len(s.Steps),
		StartedAtEpoch:     s.StartedAt,
		SessionWorkSeconds: s.SessionWorkSeconds,
		SessionIdleSeconds: s.SessionIdleSeconds,
		Timer:              FromTotals(s.Shift, s.HeartbeatAgeSeconds),
		Stats: PackStats{
			LastSeconds: s.Stats.LastSeconds,
			BestSeconds: s.Stats.BestSeconds,
			AvgSeconds:  s.Stats.AvgSeconds,
			Count:       s.Stats.Count,
		},
		PacksToday: s.PacksToday,
		Master:     FromMaster(master),
	}
	for _, step := range s.Steps {
		if step.Status == packaging.StepDone {
			dto.CompletedSteps++
		}
	}
	return dto
}

// FromPackUIState converts the compact workflow view.
func FromPackUIState(v kiosk.PackUIState) PackUIState {
	return PackUIState{
		Active:    attemptPtr(v.Active),
		PackState: v.PackState.String(),
		Flags:     FromFlags(v.Flags),
	}
}

// FromSteps converts the open attempt and its step views.
func FromSteps(a *packaging.Attempt, views []packaging.StepView) StepsResponse {
	return StepsResponse{
		Attempt:      FromAttempt(a),
		Phase:        string(a.Phase),
		StepIndex:    a.StepIndex,
		StepsInPhase: a.StepsInPhase,
		Steps:        FromStepViews(views),
	}
}

// FromStepResult converts a completed step.
func FromStepResult(r packaging.StepResult) StepResult {
	return StepResult{
		AttemptID: r.AttemptID,
		Index:     r.Index,
		SlotID:    r.Step.SlotID,
		PartID:    r.Step.PartID,
		Title:     r.Step.Title,
		Phase:     string(r.Phase),
		EventID:   r.EventID,
	}
}

// FromSettingsView converts kiosk settings and the master session.
func FromSettingsView(v kiosk.SettingsView) SettingsResponse {
	return SettingsResponse{
		Settings: Settings{
			OperatorCanReorder:      v.Settings.OperatorCanReorder,
			OperatorCanEditQty:      v.Settings.OperatorCanEditQty,
			OperatorCanAddSKU:       v.Settings.OperatorCanAddSKU,
			OperatorCanRemoveSKU:    v.Settings.OperatorCanRemoveSKU,
			OperatorCanManualMode:   v.Settings.OperatorCanManualMode,
			MasterSessionTimeoutMin: v.Settings.MasterSessionTimeoutMin,
		},
		Master: FromMaster(v.Master),
	}
}

// ToSettingsPatch converts a settings request.
func ToSettingsPatch(r SettingsRequest) kiosk.SettingsPatch {
	return kiosk.SettingsPatch{
		OperatorCanReorder:      r.OperatorCanReorder,
		OperatorCanEditQty:      r.OperatorCanEditQty,
		OperatorCanAddSKU:       r.OperatorCanAddSKU,
		OperatorCanRemoveSKU:    r.OperatorCanRemoveSKU,
		OperatorCanManualMode:   r.OperatorCanManualMode,
		MasterSessionTimeoutMin: r.MasterSessionTimeoutMin,
	}
}

// FromPlanSummary converts a plan summary.
func FromPlanSummary(p kiosk.PlanSummary) PlanSummary {
	return PlanSummary{ID: p.ID, Name: p.Name, Count: p.Count}
}

// FromPlanDetail converts a plan with items.
func FromPlanDetail(p kiosk.PlanDetail) PlanDetail {
	items := p.Items
	if items == nil {
		items = []string{}
	}
	return PlanDetail{PlanSummary: FromPlanSummary(p.PlanSummary), Items: items}
}

// FromPlanList converts the active shift's plans.
func FromPlanList(l kiosk.PlanList) PlanListResponse {
	dto := PlanListResponse{
		ShiftID:    l.ShiftID,
		Plans:      make([]PlanSummary, 0, len(l.Plans)),
		SelectedID: l.SelectedID,
	}
	for _, p := range l.Plans {
		dto.Plans = append(dto.Plans, FromPlanSummary(p))
	}
	if l.Selected != nil {
		detail := FromPlanDetail(*l.Selected)
		dto.SelectedPlan = &detail
	}
	return dto
}

// FromShiftReport converts a shift report.
func FromShiftReport(r kiosk.ShiftReport) ShiftReport {
	return ShiftReport{
		Shift:    FromShift(r.Shift),
		Timer:    FromTotals(r.Totals, nil),
		Attempts: r.Attempts,
		Packed:   r.Packed,
	}
}
