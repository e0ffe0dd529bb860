package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateKiosk(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateKiosk() error {
	if c.Kiosk.IdleThresholdSeconds <= 0 {
		return errors.New("kiosk.idle_threshold_seconds must be positive")
	}
	if c.Kiosk.HeartbeatTimeoutSeconds < 0 {
		return errors.New("kiosk.heartbeat_timeout_seconds must be >= 0 (0 disables auto-idle)")
	}
	timeout := c.Kiosk.MasterSessionTimeoutMinutes
	if timeout < MinMasterSessionTimeoutMinutes || timeout > MaxMasterSessionTimeoutMinutes {
		return fmt.Errorf("kiosk.master_session_timeout_minutes must be between %d and %d",
			MinMasterSessionTimeoutMinutes, MaxMasterSessionTimeoutMinutes)
	}
	if c.Kiosk.HeartbeatRatePerSecond <= 0 {
		return errors.New("kiosk.heartbeat_rate_per_second must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
