package testsupport

import (
	"path/filepath"
	"testing"

	"packline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "catalog.yaml")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithCatalog writes content as the SKU catalog file referenced by the config.
func WithCatalog(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Paths.CatalogPath, content)
	}
}

// WithHeartbeatTimeout overrides the heartbeat staleness threshold in seconds.
func WithHeartbeatTimeout(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Kiosk.HeartbeatTimeoutSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
