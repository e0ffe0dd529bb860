package daemon

import (
	"net/http"

	"packline/internal/api"
	"packline/internal/packaging"
	"packline/internal/timer"
)

func (s *apiServer) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	master, err := s.daemon.master.Check(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.daemon.engine.State(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSnapshot(snap, master))
}

func (s *apiServer) handleWorker(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.WorkerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.engine.SetWorker(req.WorkerID, req.WorkerName); err != nil {
		s.fail(w, r, err)
		return
	}
	id, name := s.daemon.engine.Worker()
	s.writeJSON(w, http.StatusOK, api.WorkerRequest{WorkerID: id, WorkerName: name})
}

func (s *apiServer) handleShiftStart(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.ShiftStartRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.daemon.engine.StartShift(r.Context(), req.WorkerID, req.WorkCenter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ShiftStartResponse{ShiftID: id})
}

func (s *apiServer) handleShiftEnd(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.ShiftEndRequest
	if !s.decode(w, r, &req) {
		return
	}
	closed, err := s.daemon.engine.EndShift(r.Context(), req.WorkerID, req.WorkCenters)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ShiftEndResponse{Closed: closed})
}

func (s *apiServer) handleTimerState(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.TimerStateRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := timer.ParseState(req.State)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.daemon.engine.RecordTimerState(r.Context(), state, req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TimerStateResponse{Created: created})
}

func (s *apiServer) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	if !s.heartbeat.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "heartbeat rate exceeded")
		return
	}
	var req api.HeartbeatRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.daemon.engine.RecordHeartbeat(r.Context(), req.Source)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HeartbeatResponse{EventID: id})
}

func (s *apiServer) handlePackStart(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.PackStartRequest
	if !s.decode(w, r, &req) {
		return
	}
	attempt, err := s.daemon.engine.Start(r.Context(), req.SKU)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeAttempt(w, attempt)
}

func (s *apiServer) handlePackEvent(ev packaging.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(w, r, http.MethodPost) {
			return
		}
		attempt, err := s.daemon.engine.ApplyEvent(r.Context(), ev)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.writeAttempt(w, attempt)
	}
}

func (s *apiServer) handleUIState(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromPackUIState(s.daemon.engine.UIState()))
}

func (s *apiServer) handleSteps(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	attempt, views, err := s.daemon.engine.Steps()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSteps(attempt, views))
}

func (s *apiServer) handleStepComplete(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	result, err := s.daemon.engine.CompleteStep(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStepResult(result))
}

func (s *apiServer) handlePhaseNext(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	attempt, err := s.daemon.engine.AdvancePhase(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeAttempt(w, attempt)
}

func (s *apiServer) handleSessionFinish(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.FinishRequest
	if !s.decode(w, r, &req) {
		return
	}
	finished, err := s.daemon.engine.Finish(r.Context(), req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FinishResponse{Finished: finished})
}

func (s *apiServer) writeAttempt(w http.ResponseWriter, attempt *packaging.Attempt) {
	s.writeJSON(w, http.StatusOK, api.AttemptResponse{
		Attempt: api.FromAttempt(attempt),
		Flags:   api.FromFlags(packaging.Flags(attempt.State)),
	})
}
