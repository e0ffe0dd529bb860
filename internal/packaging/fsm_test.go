package packaging_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packline/internal/packaging"
)

var allEvents = []packaging.Event{
	packaging.EventStart,
	packaging.EventCloseBox,
	packaging.EventPrintLabel,
	packaging.EventTableEmpty,
}

func TestNextFollowsTable(t *testing.T) {
	cases := []struct {
		from packaging.State
		ev   packaging.Event
		to   packaging.State
		ok   bool
	}{
		{packaging.StateNone, packaging.EventStart, packaging.StateStarted, true},
		{packaging.StateTableEmpty, packaging.EventStart, packaging.StateStarted, true},
		{packaging.StateStarted, packaging.EventCloseBox, packaging.StateBoxClosed, true},
		{packaging.StateStarted, packaging.EventTableEmpty, packaging.StateTableEmpty, true},
		{packaging.StateBoxClosed, packaging.EventPrintLabel, packaging.StateLabelPrinted, true},
		{packaging.StateBoxClosed, packaging.EventTableEmpty, packaging.StateTableEmpty, true},
		{packaging.StateLabelPrinted, packaging.EventTableEmpty, packaging.StateTableEmpty, true},
		{packaging.StateNone, packaging.EventCloseBox, packaging.StateNone, false},
		{packaging.StateStarted, packaging.EventPrintLabel, packaging.StateStarted, false},
		{packaging.StateStarted, packaging.EventStart, packaging.StateStarted, false},
		{packaging.StateLabelPrinted, packaging.EventCloseBox, packaging.StateLabelPrinted, false},
		{packaging.StateTableEmpty, packaging.EventTableEmpty, packaging.StateTableEmpty, false},
	}
	for _, tc := range cases {
		got, err := packaging.Next(tc.from, tc.ev)
		assert.Equal(t, tc.to, got, "%s --%s-->", tc.from, tc.ev)
		if tc.ok {
			assert.NoError(t, err)
			continue
		}
		var te *packaging.TransitionError
		require.True(t, errors.As(err, &te), "expected TransitionError for %s in %s", tc.ev, tc.from)
		assert.Equal(t, tc.ev, te.Event)
		assert.Equal(t, tc.from, te.State)
		assert.ErrorIs(t, err, packaging.ErrIllegalEvent)
	}
}

func TestFlagsDerivedFromTable(t *testing.T) {
	assert.Equal(t, packaging.Capabilities{CanStartSKU: true}, packaging.Flags(packaging.StateNone))
	assert.Equal(t, packaging.Capabilities{CanStartSKU: true}, packaging.Flags(packaging.StateTableEmpty))
	assert.Equal(t, packaging.Capabilities{CanMarkTableEmpty: true, CanCloseBox: true}, packaging.Flags(packaging.StateStarted))
	assert.Equal(t, packaging.Capabilities{CanMarkTableEmpty: true, CanPrintLabel: true}, packaging.Flags(packaging.StateBoxClosed))
	assert.Equal(t, packaging.Capabilities{CanMarkTableEmpty: true}, packaging.Flags(packaging.StateLabelPrinted))

	for _, s := range []packaging.State{packaging.StateNone, packaging.StateStarted, packaging.StateBoxClosed, packaging.StateLabelPrinted, packaging.StateTableEmpty} {
		flags := packaging.Flags(s)
		assert.Equal(t, packaging.Allowed(s, packaging.EventStart), flags.CanStartSKU)
		assert.Equal(t, packaging.Allowed(s, packaging.EventTableEmpty), flags.CanMarkTableEmpty)
		assert.Equal(t, packaging.Allowed(s, packaging.EventCloseBox), flags.CanCloseBox)
		assert.Equal(t, packaging.Allowed(s, packaging.EventPrintLabel), flags.CanPrintLabel)
	}
}

// Folding random event sequences: legal events move along the table, illegal
// ones leave the state unchanged and fail with a TransitionError.
func TestFoldMatchesTable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("fold applies legal events and rejects the rest", prop.ForAll(
		func(picks []int) bool {
			state := packaging.StateNone
			for _, p := range picks {
				ev := allEvents[p]
				legal := packaging.Allowed(state, ev)
				next, err := packaging.Next(state, ev)
				if legal {
					if err != nil || next == state {
						return false
					}
					state = next
					continue
				}
				var te *packaging.TransitionError
				if !errors.As(err, &te) || next != state || te.State != state {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(allEvents)-1)),
	))

	properties.TestingRun(t)
}

func TestParseEvent(t *testing.T) {
	ev, err := packaging.ParseEvent(" print_label ")
	require.NoError(t, err)
	assert.Equal(t, packaging.EventPrintLabel, ev)
	_, err = packaging.ParseEvent("REOPEN")
	assert.Error(t, err)
}
