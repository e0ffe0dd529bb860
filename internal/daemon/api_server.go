package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"packline/internal/config"
	"packline/internal/kiosk"
	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/packaging"
)

const (
	meterName       = "packline.daemon"
	maxRequestBytes = 1 << 20
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	heartbeat *rate.Limiter
	requests  metric.Int64Counter

	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger, meter metric.Meter) (*apiServer, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	requests, err := meter.Int64Counter("packline.http.requests",
		metric.WithDescription("API requests by route and status class"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		logger:    logging.NewComponentLogger(logger, "api-server"),
		daemon:    d,
		heartbeat: rate.NewLimiter(rate.Limit(cfg.Kiosk.HeartbeatRatePerSecond), cfg.Kiosk.HeartbeatBurst),
		requests:  requests,
	}

	mux := http.NewServeMux()
	routes := map[string]http.HandlerFunc{
		"/api/kiosk/state":              srv.handleState,
		"/api/kiosk/worker":             srv.handleWorker,
		"/api/kiosk/shift/start":        srv.handleShiftStart,
		"/api/kiosk/shift/end":          srv.handleShiftEnd,
		"/api/kiosk/timer/state":        srv.handleTimerState,
		"/api/kiosk/timer/heartbeat":    srv.handleHeartbeat,
		"/api/kiosk/pack/start":         srv.handlePackStart,
		"/api/kiosk/pack/close-box":     srv.handlePackEvent(packaging.EventCloseBox),
		"/api/kiosk/pack/print-label":   srv.handlePackEvent(packaging.EventPrintLabel),
		"/api/kiosk/pack/table-empty":   srv.handlePackEvent(packaging.EventTableEmpty),
		"/api/kiosk/pack/ui-state":      srv.handleUIState,
		"/api/kiosk/pack/steps":         srv.handleSteps,
		"/api/kiosk/pack/step/complete": srv.handleStepComplete,
		"/api/kiosk/pack/phase/next":    srv.handlePhaseNext,
		"/api/kiosk/session/finish":     srv.handleSessionFinish,
		"/api/kiosk/master/login":       srv.handleMasterLogin,
		"/api/kiosk/master/logout":      srv.handleMasterLogout,
		"/api/kiosk/settings":           srv.handleSettings,
		"/api/kiosk/pack/plan/upload":   srv.handlePlanUpload,
		"/api/kiosk/pack/plan/list":     srv.handlePlanList,
		"/api/kiosk/pack/plan/select":   srv.handlePlanSelect,
		"/api/kiosk/report/shift":       srv.handleShiftReport,
		"/api/kiosk/report/shifts":      srv.handleRecentShifts,
	}
	for pattern, h := range routes {
		mux.Handle(pattern, srv.instrument(pattern, authMiddleware(cfg.Paths.APIToken, h)))
	}
	srv.handler = correlationMiddleware(mux)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// allow writes 405 and returns false unless r uses one of methods.
func (s *apiServer) allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// fail maps a kiosk error onto its HTTP status and writes it.
func (s *apiServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var terr *packaging.TransitionError
	switch {
	case errors.Is(err, packaging.ErrEmptySKU),
		errors.Is(err, kiosk.ErrValidation),
		errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &terr),
		errors.Is(err, kiosk.ErrNoShift),
		errors.Is(err, kiosk.ErrShiftClosed),
		errors.Is(err, kiosk.ErrNoActiveAttempt),
		errors.Is(err, kiosk.ErrInvariant):
		return http.StatusConflict
	case errors.Is(err, kiosk.ErrNotMaster),
		errors.Is(err, kiosk.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
