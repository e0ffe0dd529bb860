package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Shift is a worker shift on a work centre.
type Shift struct {
	ID         int64  `json:"id"`
	WorkerID   string `json:"workerId"`
	WorkCenter string `json:"workCenter"`
	StartedAt  string `json:"startedAt"`
	EndedAt    string `json:"endedAt,omitempty"`
	Active     bool   `json:"active"`
}

// Attempt is one SKU's packing attempt.
type Attempt struct {
	ID              int64   `json:"id"`
	UID             string  `json:"uid"`
	ShiftID         *int64  `json:"shiftId,omitempty"`
	WorkerID        string  `json:"workerId,omitempty"`
	SKU             string  `json:"sku"`
	Title           string  `json:"title"`
	State           string  `json:"state"`
	Phase           string  `json:"phase"`
	StepIndex       int     `json:"stepIndex"`
	StepsInPhase    int     `json:"stepsInPhase"`
	StartedAt       string  `json:"startedAt"`
	StartedAtEpoch  float64 `json:"startedAtEpoch"`
	EndedAt         string  `json:"endedAt,omitempty"`
	WorktimeSeconds float64 `json:"worktimeSeconds"`
	DowntimeSeconds float64 `json:"downtimeSeconds"`
	Status          string  `json:"status,omitempty"`
}

// Step is a step of the current phase with its UI status.
type Step struct {
	Index  int    `json:"index"`
	SlotID string `json:"slotId"`
	PartID string `json:"partId"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Flags are the workflow actions currently available.
type Flags struct {
	CanStartSKU       bool `json:"canStartSku"`
	CanMarkTableEmpty bool `json:"canMarkTableEmpty"`
	CanCloseBox       bool `json:"canCloseBox"`
	CanPrintLabel     bool `json:"canPrintLabel"`
}

// ShiftTimer carries the shift work/idle totals derived from the ledger.
type ShiftTimer struct {
	WorkSeconds         int64  `json:"workSeconds"`
	IdleSeconds         int64  `json:"idleSeconds"`
	WorkMinutes         int64  `json:"workMinutes"`
	IdleMinutes         int64  `json:"idleMinutes"`
	State               string `json:"state,omitempty"`
	AutoIdle            bool   `json:"autoIdle"`
	HeartbeatAgeSeconds *int64 `json:"heartbeatAgeSeconds,omitempty"`
}

// PackStats are per-SKU pack durations in seconds.
type PackStats struct {
	LastSeconds int64 `json:"lastSeconds"`
	BestSeconds int64 `json:"bestSeconds"`
	AvgSeconds  int64 `json:"avgSeconds"`
	Count       int   `json:"count"`
}

// Master describes the supervisor session.
type Master struct {
	Active         bool   `json:"active"`
	MasterID       string `json:"masterId,omitempty"`
	TimeoutMinutes int    `json:"timeoutMinutes"`
}

// KioskState is the full operator screen state.
type KioskState struct {
	ObservedAt         string     `json:"observedAt"`
	WorkerID           string     `json:"workerId"`
	WorkerName         string     `json:"workerName"`
	ShiftID            int64      `json:"shiftId,omitempty"`
	ShiftActive        bool       `json:"shiftActive"`
	ActiveShifts       []Shift    `json:"activeShifts"`
	Status             string     `json:"status"`
	Attempt            *Attempt   `json:"attempt,omitempty"`
	PackState          string     `json:"packState"`
	Flags              Flags      `json:"flags"`
	Steps              []Step     `json:"steps"`
	CompletedSteps     int        `json:"completedSteps"`
	TotalSteps         int        `json:"totalSteps"`
	StartedAtEpoch     *float64   `json:"startedAtEpoch,omitempty"`
	SessionWorkSeconds int64      `json:"sessionWorkSeconds"`
	SessionIdleSeconds int64      `json:"sessionIdleSeconds"`
	Timer              ShiftTimer `json:"timer"`
	Stats              PackStats  `json:"stats"`
	PacksToday         int        `json:"packsToday"`
	Master             Master     `json:"master"`
}

// PackUIState is the compact workflow view.
type PackUIState struct {
	Active    *Attempt `json:"active,omitempty"`
	PackState string   `json:"packState"`
	Flags
}

// StepsResponse lists the current phase's steps.
type StepsResponse struct {
	Attempt      Attempt `json:"attempt"`
	Phase        string  `json:"phase"`
	StepIndex    int     `json:"stepIndex"`
	StepsInPhase int     `json:"stepsInPhase"`
	Steps        []Step  `json:"steps"`
}

// StepResult reports a completed step.
type StepResult struct {
	AttemptID int64  `json:"attemptId"`
	Index     int    `json:"index"`
	SlotID    string `json:"slotId"`
	PartID    string `json:"partId"`
	Title     string `json:"title"`
	Phase     string `json:"phase"`
	EventID   int64  `json:"eventId"`
}

// Settings are the kiosk operator permissions.
type Settings struct {
	OperatorCanReorder      bool `json:"operatorCanReorder"`
	OperatorCanEditQty      bool `json:"operatorCanEditQty"`
	OperatorCanAddSKU       bool `json:"operatorCanAddSkuToShift"`
	OperatorCanRemoveSKU    bool `json:"operatorCanRemoveSkuFromShift"`
	OperatorCanManualMode   bool `json:"operatorCanManualMode"`
	MasterSessionTimeoutMin int  `json:"masterSessionTimeoutMin"`
}

// SettingsResponse pairs settings with the master session.
type SettingsResponse struct {
	Settings Settings `json:"settings"`
	Master   Master   `json:"master"`
}

// PlanSummary identifies a shift plan.
type PlanSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PlanDetail is a plan with its SKUs.
type PlanDetail struct {
	PlanSummary
	Items []string `json:"items"`
}

// PlanListResponse lists the active shift's plans.
type PlanListResponse struct {
	ShiftID      int64         `json:"shiftId"`
	Plans        []PlanSummary `json:"plans"`
	SelectedID   int64         `json:"selectedId,omitempty"`
	SelectedPlan *PlanDetail   `json:"selectedPlan,omitempty"`
}

// ShiftReport summarises one shift.
type ShiftReport struct {
	Shift    Shift      `json:"shift"`
	Timer    ShiftTimer `json:"timer"`
	Attempts int        `json:"attempts"`
	Packed   int        `json:"packed"`
}
