package kiosk

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"packline/internal/clock"
	"packline/internal/config"
	"packline/internal/ledger"
	"packline/internal/logging"
)

// Setting keys stored in the kiosk settings table.
const (
	KeyOperatorCanReorder    = "operator_can_reorder"
	KeyOperatorCanEditQty    = "operator_can_edit_qty"
	KeyOperatorCanAddSKU     = "operator_can_add_sku_to_shift"
	KeyOperatorCanRemoveSKU  = "operator_can_remove_sku_from_shift"
	KeyOperatorCanManualMode = "operator_can_manual_mode"
	KeyMasterSessionTimeout  = "master_session_timeout_min"
)

var permissionKeys = []string{
	KeyOperatorCanReorder,
	KeyOperatorCanEditQty,
	KeyOperatorCanAddSKU,
	KeyOperatorCanRemoveSKU,
	KeyOperatorCanManualMode,
}

// KioskSettings are the operator permissions and the master timeout.
// Permissions default to allowed.
type KioskSettings struct {
	OperatorCanReorder      bool
	OperatorCanEditQty      bool
	OperatorCanAddSKU       bool
	OperatorCanRemoveSKU    bool
	OperatorCanManualMode   bool
	MasterSessionTimeoutMin int
}

// SettingsPatch carries the settings a master wants to change. Nil fields are left alone.
type SettingsPatch struct {
	OperatorCanReorder      *bool
	OperatorCanEditQty      *bool
	OperatorCanAddSKU       *bool
	OperatorCanRemoveSKU    *bool
	OperatorCanManualMode   *bool
	MasterSessionTimeoutMin *int
}

// SettingsView pairs the settings with the master session state.
type SettingsView struct {
	Settings KioskSettings
	Master   MasterStatus
}

// Settings reads and, in master mode, updates kiosk settings.
type Settings struct {
	store          SettingsStore
	master         *MasterSupervisor
	clock          clock.Clock
	logger         *slog.Logger
	defaultTimeout int
}

// NewSettings builds the settings service on top of the master supervisor.
func NewSettings(store SettingsStore, master *MasterSupervisor, clk clock.Clock, logger *slog.Logger, defaultTimeoutMinutes int) *Settings {
	if clk == nil {
		clk = clock.System{}
	}
	return &Settings{
		store:          store,
		master:         master,
		clock:          clk,
		logger:         logging.NewComponentLogger(logger, "settings"),
		defaultTimeout: clampTimeout(defaultTimeoutMinutes),
	}
}

// Get returns the current settings after expiring an idle master session.
func (s *Settings) Get(ctx context.Context) (SettingsView, error) {
	status, err := s.master.Check(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	current, err := s.load(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	return SettingsView{Settings: current, Master: status}, nil
}

// Update applies patch. It requires an active master session and logs the
// changed keys as SETTINGS_CHANGED.
func (s *Settings) Update(ctx context.Context, patch SettingsPatch) (SettingsView, error) {
	status, err := s.master.Check(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	if !status.Active {
		return SettingsView{}, ErrNotMaster
	}
	if t := patch.MasterSessionTimeoutMin; t != nil {
		if *t < config.MinMasterSessionTimeoutMinutes || *t > config.MaxMasterSessionTimeoutMinutes {
			return SettingsView{}, fmt.Errorf("%w: master timeout must be %d..%d minutes",
				ErrValidation, config.MinMasterSessionTimeoutMinutes, config.MaxMasterSessionTimeoutMinutes)
		}
	}

	values := make(map[string]string)
	var keys []string
	setBool := func(key string, v *bool) {
		if v == nil {
			return
		}
		values[key] = boolSetting(*v)
		keys = append(keys, key)
	}
	setBool(KeyOperatorCanReorder, patch.OperatorCanReorder)
	setBool(KeyOperatorCanEditQty, patch.OperatorCanEditQty)
	setBool(KeyOperatorCanAddSKU, patch.OperatorCanAddSKU)
	setBool(KeyOperatorCanRemoveSKU, patch.OperatorCanRemoveSKU)
	setBool(KeyOperatorCanManualMode, patch.OperatorCanManualMode)
	if t := patch.MasterSessionTimeoutMin; t != nil {
		values[KeyMasterSessionTimeout] = strconv.Itoa(*t)
		keys = append(keys, KeyMasterSessionTimeout)
	}

	if len(keys) > 0 {
		now := s.clock.Now()
		audit, err := masterEvent(ctx, s.store, ledger.EventSettingsChanged, now,
			map[string]any{"master_id": status.MasterID, "keys": keys})
		if err != nil {
			return SettingsView{}, err
		}
		if err := s.store.SetSettings(ctx, values, now, audit); err != nil {
			return SettingsView{}, fmt.Errorf("store settings: %w", err)
		}
		logging.WithContext(ctx, s.logger).Info("settings changed",
			logging.String("master_id", status.MasterID),
			logging.Any("keys", keys),
		)
	}
	if err := s.master.Touch(ctx); err != nil {
		return SettingsView{}, err
	}

	current, err := s.load(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	status.TimeoutMinutes = current.MasterSessionTimeoutMin
	return SettingsView{Settings: current, Master: status}, nil
}

// Allowed reports whether the operator permission key is enabled.
func (s *Settings) Allowed(ctx context.Context, key string) (bool, error) {
	values, err := s.store.Settings(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load setting %s: %w", key, err)
	}
	return parseBoolSetting(values, key), nil
}

func (s *Settings) load(ctx context.Context) (KioskSettings, error) {
	values, err := s.store.Settings(ctx, append(permissionKeys, KeyMasterSessionTimeout)...)
	if err != nil {
		return KioskSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return KioskSettings{
		OperatorCanReorder:      parseBoolSetting(values, KeyOperatorCanReorder),
		OperatorCanEditQty:      parseBoolSetting(values, KeyOperatorCanEditQty),
		OperatorCanAddSKU:       parseBoolSetting(values, KeyOperatorCanAddSKU),
		OperatorCanRemoveSKU:    parseBoolSetting(values, KeyOperatorCanRemoveSKU),
		OperatorCanManualMode:   parseBoolSetting(values, KeyOperatorCanManualMode),
		MasterSessionTimeoutMin: timeoutSetting(values, s.defaultTimeout),
	}, nil
}

func boolSetting(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// parseBoolSetting treats a missing or unparsable value as enabled.
func parseBoolSetting(values map[string]string, key string) bool {
	raw, ok := values[key]
	if !ok {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}
