package config

const (
	defaultConfigPath                  = "~/.config/packline/config.toml"
	defaultDataDir                     = "~/.local/share/packline"
	defaultLogDir                      = "~/.local/share/packline/logs"
	defaultCatalogPath                 = "~/.config/packline/catalog.yaml"
	defaultAPIBind                     = "127.0.0.1:8000"
	defaultWorkCenter                  = "PACKING"
	defaultIdleThresholdSeconds        = 5.0
	defaultHeartbeatTimeoutSeconds     = 90.0
	defaultMasterSessionTimeoutMinutes = 15
	defaultHeartbeatRatePerSecond      = 2.0
	defaultHeartbeatBurst              = 5
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"

	// MinMasterSessionTimeoutMinutes and MaxMasterSessionTimeoutMinutes bound
	// the master-mode inactivity timeout.
	MinMasterSessionTimeoutMinutes = 1
	MaxMasterSessionTimeoutMinutes = 240
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
			APIBind:     defaultAPIBind,
		},
		Kiosk: Kiosk{
			WorkCenter:                  defaultWorkCenter,
			IdleThresholdSeconds:        defaultIdleThresholdSeconds,
			HeartbeatTimeoutSeconds:     defaultHeartbeatTimeoutSeconds,
			MasterSessionTimeoutMinutes: defaultMasterSessionTimeoutMinutes,
			HeartbeatRatePerSecond:      defaultHeartbeatRatePerSecond,
			HeartbeatBurst:              defaultHeartbeatBurst,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
