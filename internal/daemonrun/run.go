package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"packline/internal/clock"
	"packline/internal/config"
	"packline/internal/daemon"
	"packline/internal/kiosk"
	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/packaging"
)

const meterName = "packline"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Stdout mirrors log output to standard output besides the log file.
	Stdout bool
}

// Run starts the packline daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	outputs := []string{cfg.LogPath()}
	if opts.Stdout {
		outputs = append([]string{"stdout"}, outputs...)
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := ledger.Open(cfg)
	if err != nil {
		logger.Error("open ledger", logging.Error(err))
		return err
	}

	catalog, err := packaging.LoadCatalog(cfg.Paths.CatalogPath)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("load catalog: %w", err)
	}

	meter := meterFor(cfg)
	clk := clock.System{}
	engine, err := kiosk.New(signalCtx, kiosk.Deps{
		Store:            store,
		Catalog:          catalog,
		Clock:            clk,
		Logger:           logger,
		Meter:            meter,
		WorkCenter:       cfg.Kiosk.WorkCenter,
		IdleThreshold:    cfg.Kiosk.IdleThresholdSeconds,
		HeartbeatTimeout: cfg.Kiosk.HeartbeatTimeoutSeconds,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create kiosk engine: %w", err)
	}

	d, err := daemon.New(cfg, store, engine, logger, daemon.WithClock(clk), daemon.WithMeter(meter))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("packline daemon shutting down")
	return nil
}

// meterFor returns the global meter when metrics are enabled so an installed
// provider picks the instruments up, and a no-op meter otherwise.
func meterFor(cfg *config.Config) metric.Meter {
	if cfg.Metrics.Enabled {
		return otel.Meter(meterName)
	}
	return noop.NewMeterProvider().Meter(meterName)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("catalog", cfg.Paths.CatalogPath),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
		logging.String("work_center", cfg.Kiosk.WorkCenter),
		logging.Float64("idle_threshold_seconds", cfg.Kiosk.IdleThresholdSeconds),
		logging.Float64("heartbeat_timeout_seconds", cfg.Kiosk.HeartbeatTimeoutSeconds),
		logging.Bool("metrics", cfg.Metrics.Enabled),
	)
}
