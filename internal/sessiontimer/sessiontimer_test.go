package sessiontimer_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/sessiontimer"
)

const threshold = 5.0

func TestObserveAttributesDeltaToOneBucket(t *testing.T) {
	timer := sessiontimer.New(100)

	timer.Observe(103, threshold)
	assert.Equal(t, 3.0, timer.WorktimeSec)
	assert.Equal(t, 0.0, timer.DowntimeSec)

	// 10s since last activity: the whole 7s delta is idle.
	timer.Observe(110, threshold)
	assert.Equal(t, 3.0, timer.WorktimeSec)
	assert.Equal(t, 7.0, timer.DowntimeSec)

	timer.Activity(111, threshold)
	assert.Equal(t, 8.0, timer.DowntimeSec)
	assert.Equal(t, 111.0, timer.LastActivity)

	timer.Observe(113, threshold)
	assert.Equal(t, 5.0, timer.WorktimeSec)
}

func TestObserveIgnoresNonPositiveDeltas(t *testing.T) {
	timer := sessiontimer.New(100)
	timer.Observe(104, threshold)
	before := *timer

	timer.Observe(104, threshold)
	timer.Observe(90, threshold)
	assert.Equal(t, before, *timer)
}

func TestFinishFreezesTotals(t *testing.T) {
	timer := sessiontimer.New(100)
	require.True(t, timer.Finish(104, threshold, ""))
	assert.Equal(t, 4.0, timer.Total())
	assert.Equal(t, sessiontimer.StatusDone, timer.Status)
	require.NotNil(t, timer.FinishTime)
	assert.Equal(t, 104.0, *timer.FinishTime)

	assert.False(t, timer.Finish(200, threshold, sessiontimer.StatusCancelled))
	timer.Observe(300, threshold)
	timer.Activity(301, threshold)
	assert.Equal(t, 4.0, timer.Total())
	assert.Equal(t, sessiontimer.StatusDone, timer.Status)
}

func TestTotalsAreMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("each read grows exactly one bucket by its delta", prop.ForAll(
		func(steps []int, activity []bool) bool {
			timer := sessiontimer.New(0)
			now := 0.0
			for i, step := range steps {
				prevWork, prevIdle, prevTS := timer.WorktimeSec, timer.DowntimeSec, timer.LastMetricsTS
				now += float64(step)
				if i < len(activity) && activity[i] {
					timer.Activity(now, threshold)
				} else {
					timer.Observe(now, threshold)
				}
				delta := now - prevTS
				dw := timer.WorktimeSec - prevWork
				di := timer.DowntimeSec - prevIdle
				if dw < 0 || di < 0 {
					return false
				}
				if delta <= 0 {
					if dw != 0 || di != 0 {
						return false
					}
					continue
				}
				if !(dw == delta && di == 0) && !(di == delta && dw == 0) {
					return false
				}
			}
			return timer.Total() == now
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestRestoredTimerIsFrozen(t *testing.T) {
	timer := sessiontimer.Restored(100, 12, 3, "")
	require.True(t, timer.Finished())
	assert.Equal(t, sessiontimer.StatusDone, timer.Status)
	assert.Equal(t, 115.0, *timer.FinishTime)

	timer.Observe(500, threshold)
	timer.Activity(600, threshold)
	assert.False(t, timer.Finish(700, threshold, sessiontimer.StatusCancelled))
	assert.Equal(t, 12.0, timer.WorktimeSec)
	assert.Equal(t, 3.0, timer.DowntimeSec)
	assert.Equal(t, sessiontimer.StatusDone, timer.Status)
}
