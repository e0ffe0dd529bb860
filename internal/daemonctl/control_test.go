package daemonctl

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	pid, err := ReadPID(cfg.PIDPath())
	require.NoError(t, err)
	assert.Zero(t, pid, "missing file")

	testsupport.WriteFile(t, cfg.PIDPath(), "garbage\n")
	pid, err = ReadPID(cfg.PIDPath())
	require.NoError(t, err)
	assert.Zero(t, pid)

	testsupport.WriteFile(t, cfg.PIDPath(), "4242\n")
	pid, err = ReadPID(cfg.PIDPath())
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestProcessInfoUsesPIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	alive, _, err := ProcessInfo(cfg)
	require.NoError(t, err)
	assert.False(t, alive)

	testsupport.WriteFile(t, cfg.PIDPath(), strconv.Itoa(os.Getpid()))
	alive, pid, err := ProcessInfo(cfg)
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, os.Getpid(), pid)
}

func TestStopRefusesCurrentProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	_, err := StopAndTerminate(cfg, 0)
	assert.True(t, errors.Is(err, ErrDaemonNotRunning))

	testsupport.WriteFile(t, cfg.PIDPath(), strconv.Itoa(os.Getpid()))
	_, err = StopAndTerminate(cfg, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing")
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenStore(t, cfg)

	snap, err := BuildStatusSnapshot(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.False(t, snap.APIReachable)
	require.NotEmpty(t, snap.Checks)
	assert.Equal(t, "Ledger", snap.Checks[len(snap.Checks)-1].Name)
	assert.True(t, snap.Checks[len(snap.Checks)-1].Passed)
}
