// Package daemonctl launches, probes and stops the packlined process from the
// CLI using the daemon's pid file and HTTP API.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"packline/internal/config"
	"packline/internal/ledger"
	"packline/internal/preflight"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// ErrDaemonNotRunning indicates no live daemon process was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached "packline serve" process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// ReadPID returns the PID recorded in the daemon pid file, or zero.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// processAlive reports whether pid names a live process we may signal.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ProcessInfo reports whether the daemon named by the pid file is alive.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	pid, err := ReadPID(cfg.PIDPath())
	if err != nil {
		return false, 0, err
	}
	if !processAlive(pid) {
		return false, pid, nil
	}
	return true, pid, nil
}

// Probe reports whether the daemon API answers on the configured address.
func Probe(ctx context.Context, cfg *config.Config) bool {
	addr := strings.TrimSpace(cfg.Paths.APIBind)
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/kiosk/pack/ui-state", nil)
	if err != nil {
		return false
	}
	if token := cfg.Paths.APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EnsureStarted launches the daemon unless one is already alive and waits for
// its API to answer.
func EnsureStarted(ctx context.Context, cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if alive, pid, err := ProcessInfo(cfg); err != nil {
		return StartResult{}, err
	} else if alive {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}

	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if Probe(ctx, cfg) {
			_, pid, _ := ProcessInfo(cfg)
			return StartResult{State: StartStateStarted, PID: pid}, nil
		}
		select {
		case <-ctx.Done():
			return StartResult{}, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return StartResult{}, fmt.Errorf("daemon failed to start: api %s did not answer within %s", cfg.Paths.APIBind, waitTimeout)
}

// StopAndTerminate sends SIGTERM to the daemon and force-kills it if it is
// still alive after gracePeriod.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	alive, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !alive {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return result, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

// Snapshot is the daemon status shown by "packline status".
type Snapshot struct {
	Running      bool
	PID          int
	APIReachable bool
	Checks       []preflight.Result
}

// BuildStatusSnapshot combines process state, API reachability and the
// preflight checks. An existing ledger is opened to check its health.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		return Snapshot{}, errors.New("configuration not available")
	}
	alive, pid, err := ProcessInfo(cfg)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Running: alive, PID: pid}
	if alive {
		snap.APIReachable = Probe(ctx, cfg)
	}
	snap.Checks = preflight.RunAll(ctx, cfg)

	if _, statErr := os.Stat(cfg.LedgerPath()); statErr == nil {
		store, openErr := ledger.OpenPath(cfg.LedgerPath())
		if openErr != nil {
			snap.Checks = append(snap.Checks, preflight.Result{Name: "Ledger", Detail: openErr.Error()})
		} else {
			snap.Checks = append(snap.Checks, preflight.CheckLedger(ctx, store))
			_ = store.Close()
		}
	}
	return snap, nil
}
