// Package config loads, normalizes, and validates packline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PACKLINE_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: where the ledger database lives, which work centre the kiosk
// serves, and the idle/heartbeat thresholds the timer engines apply.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
