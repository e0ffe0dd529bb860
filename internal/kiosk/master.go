package kiosk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"packline/internal/clock"
	"packline/internal/config"
	"packline/internal/ledger"
	"packline/internal/logging"
)

// SettingsStore persists kiosk settings and the master session.
type SettingsStore interface {
	Settings(ctx context.Context, keys ...string) (map[string]string, error)
	SetSettings(ctx context.Context, values map[string]string, ts float64, audit *ledger.Event) error
	DeleteSettings(ctx context.Context, keys []string, audit *ledger.Event) error
	ActiveShifts(ctx context.Context) ([]ledger.Shift, error)
}

const (
	keyMasterID         = "master_id"
	keyMasterLastActive = "master_last_active_ts"
)

// Logout reasons.
const (
	LogoutManual  = "manual"
	LogoutTimeout = "timeout"
)

var masterQR = regexp.MustCompile(`^M(\d{8})$`)

// MasterStatus describes the master session.
type MasterStatus struct {
	Active         bool
	MasterID       string
	LastActive     float64
	TimeoutMinutes int
}

// MasterSupervisor tracks the supervisor ("master") session. The session is
// kept in the settings table so it survives restarts and times out after a
// configurable period without master activity.
type MasterSupervisor struct {
	mu             sync.Mutex
	store          SettingsStore
	clock          clock.Clock
	logger         *slog.Logger
	defaultTimeout int
}

// NewMasterSupervisor builds a supervisor. defaultTimeoutMinutes applies until
// a master stores a timeout setting.
func NewMasterSupervisor(store SettingsStore, clk clock.Clock, logger *slog.Logger, defaultTimeoutMinutes int) *MasterSupervisor {
	if clk == nil {
		clk = clock.System{}
	}
	return &MasterSupervisor{
		store:          store,
		clock:          clk,
		logger:         logging.NewComponentLogger(logger, "master"),
		defaultTimeout: clampTimeout(defaultTimeoutMinutes),
	}
}

// Login starts a master session from a scanned badge "M" followed by eight
// digits. It returns the master ID.
func (m *MasterSupervisor) Login(ctx context.Context, qr string) (string, error) {
	match := masterQR.FindStringSubmatch(strings.TrimSpace(qr))
	if match == nil {
		return "", fmt.Errorf("%w: master badge must be M followed by 8 digits", ErrValidation)
	}
	masterID := match[1]

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	audit, err := masterEvent(ctx, m.store, ledger.EventMasterLogin, now, map[string]any{"master_id": masterID})
	if err != nil {
		return "", err
	}
	values := map[string]string{
		keyMasterID:         masterID,
		keyMasterLastActive: formatSeconds(now),
	}
	if err := m.store.SetSettings(ctx, values, now, audit); err != nil {
		return "", fmt.Errorf("store master session: %w", err)
	}
	logging.WithContext(ctx, m.logger).Info("master login", logging.String("master_id", masterID))
	return masterID, nil
}

// Logout ends the master session. It returns the recorded reason.
func (m *MasterSupervisor) Logout(ctx context.Context, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = LogoutManual
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.statusLocked(ctx)
	if err != nil {
		return "", err
	}
	if err := m.endLocked(ctx, status, reason); err != nil {
		return "", err
	}
	return reason, nil
}

// Check expires a master session idle for longer than the timeout and returns
// the resulting status.
func (m *MasterSupervisor) Check(ctx context.Context) (MasterStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.statusLocked(ctx)
	if err != nil {
		return MasterStatus{}, err
	}
	if !status.Active {
		return status, nil
	}
	if m.clock.Now()-status.LastActive <= float64(status.TimeoutMinutes*60) {
		return status, nil
	}
	if err := m.endLocked(ctx, status, LogoutTimeout); err != nil {
		return MasterStatus{}, err
	}
	return MasterStatus{TimeoutMinutes: status.TimeoutMinutes}, nil
}

// Touch records master activity, postponing the timeout.
func (m *MasterSupervisor) Touch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.statusLocked(ctx)
	if err != nil || !status.Active {
		return err
	}
	now := m.clock.Now()
	return m.store.SetSettings(ctx, map[string]string{keyMasterLastActive: formatSeconds(now)}, now, nil)
}

func (m *MasterSupervisor) statusLocked(ctx context.Context) (MasterStatus, error) {
	values, err := m.store.Settings(ctx, keyMasterID, keyMasterLastActive, KeyMasterSessionTimeout)
	if err != nil {
		return MasterStatus{}, fmt.Errorf("load master session: %w", err)
	}
	status := MasterStatus{
		MasterID:       values[keyMasterID],
		TimeoutMinutes: timeoutSetting(values, m.defaultTimeout),
	}
	status.Active = status.MasterID != ""
	if raw, ok := values[keyMasterLastActive]; ok {
		status.LastActive, _ = strconv.ParseFloat(raw, 64)
	}
	return status, nil
}

func (m *MasterSupervisor) endLocked(ctx context.Context, status MasterStatus, reason string) error {
	var audit *ledger.Event
	if status.Active {
		var err error
		audit, err = masterEvent(ctx, m.store, ledger.EventMasterLogout, m.clock.Now(),
			map[string]any{"master_id": status.MasterID, "reason": reason})
		if err != nil {
			return err
		}
	}
	if err := m.store.DeleteSettings(ctx, []string{keyMasterID, keyMasterLastActive}, audit); err != nil {
		return fmt.Errorf("clear master session: %w", err)
	}
	if status.Active {
		logging.WithContext(ctx, m.logger).Info("master logout",
			logging.String("master_id", status.MasterID),
			logging.String("reason", reason),
		)
	}
	return nil
}

// masterEvent builds an audit event bound to the newest open shift, if any.
func masterEvent(ctx context.Context, shifts shiftLister, t ledger.EventType, ts float64, payload map[string]any) (*ledger.Event, error) {
	shiftID, err := activeShiftID(ctx, shifts)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return &ledger.Event{Timestamp: ts, Type: t, ShiftID: shiftID, Payload: string(encoded)}, nil
}

type shiftLister interface {
	ActiveShifts(ctx context.Context) ([]ledger.Shift, error)
}

// activeShiftID returns the newest open shift, or zero.
func activeShiftID(ctx context.Context, shifts shiftLister) (int64, error) {
	open, err := shifts.ActiveShifts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active shifts: %w", err)
	}
	if len(open) == 0 {
		return 0, nil
	}
	return open[len(open)-1].ID, nil
}

func clampTimeout(minutes int) int {
	switch {
	case minutes < config.MinMasterSessionTimeoutMinutes:
		return config.MinMasterSessionTimeoutMinutes
	case minutes > config.MaxMasterSessionTimeoutMinutes:
		return config.MaxMasterSessionTimeoutMinutes
	default:
		return minutes
	}
}

func timeoutSetting(values map[string]string, fallback int) int {
	raw, ok := values[KeyMasterSessionTimeout]
	if !ok {
		return fallback
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return clampTimeout(minutes)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
