package api

// ShiftStartRequest opens a shift.
type ShiftStartRequest struct {
	WorkerID   string `json:"workerId"`
	WorkCenter string `json:"workCenter"`
}

// ShiftStartResponse returns the opened shift.
type ShiftStartResponse struct {
	ShiftID int64 `json:"shiftId"`
}

// ShiftEndRequest closes a worker's shifts; no centres means all of them.
type ShiftEndRequest struct {
	WorkerID    string   `json:"workerId"`
	WorkCenters []string `json:"workCenters,omitempty"`
}

// ShiftEndResponse reports how many shifts were closed.
type ShiftEndResponse struct {
	Closed int `json:"closed"`
}

// WorkerRequest sets the current worker.
type WorkerRequest struct {
	WorkerID   string `json:"workerId"`
	WorkerName string `json:"workerName,omitempty"`
}

// TimerStateRequest records a work or idle transition.
type TimerStateRequest struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// TimerStateResponse reports whether a transition was written.
type TimerStateResponse struct {
	Created bool `json:"created"`
}

// HeartbeatRequest records a liveness signal.
type HeartbeatRequest struct {
	Source string `json:"source,omitempty"`
}

// HeartbeatResponse returns the stored heartbeat.
type HeartbeatResponse struct {
	EventID int64 `json:"eventId"`
}

// PackStartRequest starts packing a SKU.
type PackStartRequest struct {
	SKU string `json:"sku"`
}

// AttemptResponse wraps an attempt after a workflow operation.
type AttemptResponse struct {
	Attempt Attempt `json:"attempt"`
	Flags   Flags   `json:"flags"`
}

// FinishRequest finishes the session timer.
type FinishRequest struct {
	Status string `json:"status,omitempty"`
}

// FinishResponse reports whether a running session was finished.
type FinishResponse struct {
	Finished bool `json:"finished"`
}

// MasterLoginRequest carries the scanned master badge.
type MasterLoginRequest struct {
	QRText string `json:"qrText"`
}

// MasterLogoutRequest ends the master session.
type MasterLogoutRequest struct {
	Reason string `json:"reason,omitempty"`
}

// MasterLogoutResponse echoes the logout reason.
type MasterLogoutResponse struct {
	Reason string `json:"reason"`
}

// SettingsRequest changes kiosk settings. Omitted fields are unchanged.
type SettingsRequest struct {
	OperatorCanReorder      *bool `json:"operatorCanReorder,omitempty"`
	OperatorCanEditQty      *bool `json:"operatorCanEditQty,omitempty"`
	OperatorCanAddSKU       *bool `json:"operatorCanAddSkuToShift,omitempty"`
	OperatorCanRemoveSKU    *bool `json:"operatorCanRemoveSkuFromShift,omitempty"`
	OperatorCanManualMode   *bool `json:"operatorCanManualMode,omitempty"`
	MasterSessionTimeoutMin *int  `json:"masterSessionTimeoutMin,omitempty"`
}

// PlanUploadRequest uploads a shift plan as items or newline separated text.
type PlanUploadRequest struct {
	Name  string   `json:"name,omitempty"`
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// PlanSelectRequest selects a plan for the active shift.
type PlanSelectRequest struct {
	PlanID int64 `json:"planId"`
}

// PlanSelectResponse returns the selected plan.
type PlanSelectResponse struct {
	SelectedPlan PlanDetail `json:"selectedPlan"`
}
