package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/metric"

	"packline/internal/clock"
	"packline/internal/config"
	"packline/internal/kiosk"
	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/preflight"
)

// Daemon owns the kiosk services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *ledger.Store
	engine *kiosk.Engine
	clock  clock.Clock

	master   *kiosk.MasterSupervisor
	settings *kiosk.Settings
	plans    *kiosk.Plans
	reporter *kiosk.Reporter

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LedgerPath   string
	LockFilePath string
	APIAddress   string
	Preflight    []preflight.Result
}

// Option customises a Daemon.
type Option func(*options)

type options struct {
	clock clock.Clock
	meter metric.Meter
}

// WithClock replaces the system clock used by the master session, settings and plans.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMeter sets the meter for HTTP request instruments.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, engine *kiosk.Engine, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || engine == nil {
		return nil, errors.New("daemon requires config, store, and kiosk engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}

	timeout := cfg.Kiosk.MasterSessionTimeoutMinutes
	master := kiosk.NewMasterSupervisor(store, o.clock, logger, timeout)
	settings := kiosk.NewSettings(store, master, o.clock, logger, timeout)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   engine,
		clock:    o.clock,
		master:   master,
		settings: settings,
		plans:    kiosk.NewPlans(store, settings, o.clock, logger),
		reporter: kiosk.NewReporter(store, o.clock, logger, cfg.Kiosk.HeartbeatTimeoutSeconds),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	api, err := newAPIServer(cfg, d, logger, o.meter)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks and starts the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another packline daemon instance is already running")
	}

	results := preflight.RunAll(ctx, d.cfg)
	results = append(results, preflight.CheckLedger(ctx, d.store))
	for _, r := range results {
		d.logger.Debug("preflight", logging.String("check", r.Name), logging.Bool("passed", r.Passed), logging.String("detail", r.Detail))
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		_ = d.lock.Unlock()
		return fmt.Errorf("preflight %s failed: %s", failed[0].Name, failed[0].Detail)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("packline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("ledger", d.store.Path()),
	)
	return nil
}

// Stop stops the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("packline daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Handler returns the API handler with its middleware chain.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	results := preflight.RunAll(ctx, d.cfg)
	results = append(results, preflight.CheckLedger(ctx, d.store))
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LedgerPath:   d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Preflight:    results,
	}
}
