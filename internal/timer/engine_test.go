package timer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/testsupport"
	"packline/internal/timer"
)

const t0 = 1000.0

func newEngine(t *testing.T) (*timer.Engine, *ledger.Store, int64) {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	shift := testsupport.MustStartShift(t, store, "W1", "PACKING", t0-100)
	return timer.NewEngine(store, store, logging.NewNop()), store, shift
}

func appendAt(t *testing.T, store *ledger.Store, shift int64, typ ledger.EventType, ts float64) {
	t.Helper()
	testsupport.MustAppend(t, store, ledger.Event{Type: typ, ShiftID: shift, Timestamp: ts, WorkerID: "W1"})
}

func TestComputeOpenShift(t *testing.T) {
	engine, store, shift := newEngine(t)
	appendAt(t, store, shift, ledger.EventWorkStarted, t0)
	appendAt(t, store, shift, ledger.EventIdleStarted, t0+10)
	appendAt(t, store, shift, ledger.EventWorkStarted, t0+30)

	totals, err := engine.Compute(context.Background(), shift, t0+50, 0)
	require.NoError(t, err)
	assert.Equal(t, timer.Totals{WorkSeconds: 30, IdleSeconds: 20, State: timer.StateWork}, totals)
}

func TestComputeClosedShiftStopsAtEndTime(t *testing.T) {
	engine, store, shift := newEngine(t)
	appendAt(t, store, shift, ledger.EventWorkStarted, t0)
	_, err := store.EndShift(context.Background(), "W1", nil, t0+25)
	require.NoError(t, err)

	totals, err := engine.Compute(context.Background(), shift, t0+100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), totals.WorkSeconds)
	assert.Equal(t, int64(0), totals.IdleSeconds)
}

func TestComputeNoEvents(t *testing.T) {
	engine, _, shift := newEngine(t)
	totals, err := engine.Compute(context.Background(), shift, t0, 90)
	require.NoError(t, err)
	assert.Equal(t, timer.Totals{}, totals)

	totals, err = engine.Compute(context.Background(), 0, t0, 90)
	require.NoError(t, err)
	assert.Equal(t, timer.StateNone, totals.State)
}

func TestComputeStaleHeartbeatReportsIdle(t *testing.T) {
	engine, store, shift := newEngine(t)
	appendAt(t, store, shift, ledger.EventWorkStarted, t0)
	appendAt(t, store, shift, ledger.EventHeartbeat, t0)

	totals, err := engine.Compute(context.Background(), shift, t0+200, 90)
	require.NoError(t, err)
	assert.Equal(t, timer.StateIdle, totals.State)
	assert.True(t, totals.AutoIdle)
	assert.Equal(t, int64(200), totals.WorkSeconds)
	assert.Equal(t, int64(0), totals.IdleSeconds)

	events, err := store.Query(context.Background(), shift)
	require.NoError(t, err)
	assert.Len(t, events, 2, "override must not write events")
}

func TestComputeFreshOrMissingHeartbeatKeepsState(t *testing.T) {
	engine, store, shift := newEngine(t)
	appendAt(t, store, shift, ledger.EventWorkStarted, t0)

	totals, err := engine.Compute(context.Background(), shift, t0+30, 90)
	require.NoError(t, err)
	assert.Equal(t, timer.StateWork, totals.State)
	assert.Equal(t, int64(30), totals.WorkSeconds)

	appendAt(t, store, shift, ledger.EventHeartbeat, t0+10)
	totals, err = engine.Compute(context.Background(), shift, t0+50, 90)
	require.NoError(t, err)
	assert.Equal(t, timer.StateWork, totals.State)
	assert.False(t, totals.AutoIdle)
	assert.Equal(t, int64(50), totals.WorkSeconds)
}

func TestRecordStateIsIdempotent(t *testing.T) {
	engine, store, shift := newEngine(t)
	ctx := context.Background()

	created, err := engine.RecordState(ctx, shift, timer.StateWork, "scan", t0, "W1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = engine.RecordState(ctx, shift, timer.StateWork, "", t0+1, "W1")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = engine.RecordState(ctx, shift, timer.StateIdle, "", t0+2, "W1")
	require.NoError(t, err)
	assert.True(t, created)

	events, err := store.Query(ctx, shift, ledger.EventWorkStarted, ledger.EventIdleStarted)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.JSONEq(t, `{"reason":"scan"}`, events[0].Payload)

	_, err = engine.RecordState(ctx, shift, timer.StateNone, "", t0+3, "W1")
	assert.Error(t, err)
}

func TestRecordHeartbeatAlwaysAppends(t *testing.T) {
	engine, _, shift := newEngine(t)
	ctx := context.Background()

	first, err := engine.RecordHeartbeat(ctx, shift, t0, "kiosk", "W1")
	require.NoError(t, err)
	second, err := engine.RecordHeartbeat(ctx, shift, t0, "kiosk", "W1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	age, ok, err := engine.HeartbeatAge(ctx, shift, t0+12)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 12.0, age, 1e-9)

	_, ok, err = engine.HeartbeatAge(ctx, shift+100, t0)
	require.NoError(t, err)
	assert.False(t, ok)
}
