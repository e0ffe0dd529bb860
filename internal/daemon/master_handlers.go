package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"packline/internal/api"
	"packline/internal/kiosk"
)

func (s *apiServer) handleMasterLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.MasterLoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if _, err := s.daemon.master.Login(ctx, req.QRText); err != nil {
		s.fail(w, r, err)
		return
	}
	status, err := s.daemon.master.Check(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromMaster(status))
}

func (s *apiServer) handleMasterLogout(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.MasterLogoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	reason, err := s.daemon.master.Logout(r.Context(), req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MasterLogoutResponse{Reason: reason})
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	var (
		view kiosk.SettingsView
		err  error
	)
	if r.Method == http.MethodGet {
		view, err = s.daemon.settings.Get(r.Context())
	} else {
		var req api.SettingsRequest
		if !s.decode(w, r, &req) {
			return
		}
		view, err = s.daemon.settings.Update(r.Context(), api.ToSettingsPatch(req))
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSettingsView(view))
}

func (s *apiServer) handlePlanUpload(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.PlanUploadRequest
	if !s.decode(w, r, &req) {
		return
	}
	summary, err := s.daemon.plans.Upload(r.Context(), kiosk.PlanUpload{Name: req.Name, Text: req.Text, Items: req.Items})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromPlanSummary(summary))
}

func (s *apiServer) handlePlanList(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	list, err := s.daemon.plans.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromPlanList(list))
}

func (s *apiServer) handlePlanSelect(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.PlanSelectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PlanID <= 0 {
		s.writeError(w, http.StatusBadRequest, "planId is required")
		return
	}
	detail, err := s.daemon.plans.Select(r.Context(), req.PlanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PlanSelectResponse{SelectedPlan: api.FromPlanDetail(detail)})
}

func (s *apiServer) handleShiftReport(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid shift id")
		return
	}
	report, err := s.daemon.reporter.Shift(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromShiftReport(report))
}

func (s *apiServer) handleRecentShifts(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := s.daemon.reporter.Recent(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]api.ShiftReport, 0, len(reports))
	for _, rep := range reports {
		out = append(out, api.FromShiftReport(rep))
	}
	s.writeJSON(w, http.StatusOK, out)
}
