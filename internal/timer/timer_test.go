package timer_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/ledger"
	"packline/internal/timer"
)

func ev(t ledger.EventType, ts float64) ledger.Event {
	return ledger.Event{Type: t, Timestamp: ts, ShiftID: 1}
}

func TestReplay(t *testing.T) {
	const t0 = 1000.0
	cases := []struct {
		name   string
		events []ledger.Event
		tail   float64
		want   timer.Totals
	}{
		{
			name: "no events",
			tail: t0,
			want: timer.Totals{State: timer.StateNone},
		},
		{
			name: "work idle work open shift",
			events: []ledger.Event{
				ev(ledger.EventWorkStarted, t0),
				ev(ledger.EventIdleStarted, t0+10),
				ev(ledger.EventWorkStarted, t0+30),
			},
			tail: t0 + 50,
			want: timer.Totals{WorkSeconds: 30, IdleSeconds: 20, State: timer.StateWork},
		},
		{
			name: "duplicate timestamps are skipped",
			events: []ledger.Event{
				ev(ledger.EventWorkStarted, t0),
				ev(ledger.EventIdleStarted, t0),
			},
			tail: t0 + 5,
			want: timer.Totals{IdleSeconds: 5, State: timer.StateIdle},
		},
		{
			name: "tail before last event contributes nothing",
			events: []ledger.Event{
				ev(ledger.EventWorkStarted, t0),
				ev(ledger.EventIdleStarted, t0+20),
			},
			tail: t0 + 10,
			want: timer.Totals{WorkSeconds: 20, State: timer.StateIdle},
		},
		{
			name: "non timer events are ignored",
			events: []ledger.Event{
				ev(ledger.EventWorkStarted, t0),
				ev(ledger.EventHeartbeat, t0+3),
				ev(ledger.EventStart, t0+4),
			},
			tail: t0 + 10,
			want: timer.Totals{WorkSeconds: 10, State: timer.StateWork},
		},
		{
			name: "fractional seconds truncate",
			events: []ledger.Event{
				ev(ledger.EventIdleStarted, t0),
			},
			tail: t0 + 9.9,
			want: timer.Totals{IdleSeconds: 9, State: timer.StateIdle},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, timer.Replay(tc.events, tc.tail))
		})
	}
}

func TestReplayAccountsWholeSpan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("work plus idle equals the span from first event to tail", prop.ForAll(
		func(gaps []int, kinds []bool, tailGap int) bool {
			n := len(gaps)
			if len(kinds) < n {
				n = len(kinds)
			}
			if n == 0 {
				return timer.Replay(nil, 10) == timer.Totals{}
			}
			events := make([]ledger.Event, 0, n)
			ts := 0.0
			for i := 0; i < n; i++ {
				ts += float64(gaps[i])
				typ := ledger.EventIdleStarted
				if kinds[i] {
					typ = ledger.EventWorkStarted
				}
				events = append(events, ev(typ, ts))
			}
			tail := ts + float64(tailGap)
			got := timer.Replay(events, tail)

			wantState := timer.StateIdle
			if kinds[n-1] {
				wantState = timer.StateWork
			}
			span := int64(tail - events[0].Timestamp)
			return got.WorkSeconds >= 0 && got.IdleSeconds >= 0 &&
				got.WorkSeconds+got.IdleSeconds == span && got.State == wantState
		},
		gen.SliceOf(gen.IntRange(0, 120)),
		gen.SliceOf(gen.Bool()),
		gen.IntRange(0, 120),
	))

	properties.TestingRun(t)
}

func TestParseStateAndEventMapping(t *testing.T) {
	s, err := timer.ParseState(" WORK ")
	require.NoError(t, err)
	assert.Equal(t, timer.StateWork, s)

	typ, ok := timer.StateIdle.EventType()
	require.True(t, ok)
	assert.Equal(t, ledger.EventIdleStarted, typ)

	back, ok := timer.StateFor(typ)
	require.True(t, ok)
	assert.Equal(t, timer.StateIdle, back)

	_, err = timer.ParseState("break")
	assert.Error(t, err)
	_, ok = timer.StateNone.EventType()
	assert.False(t, ok)
}
