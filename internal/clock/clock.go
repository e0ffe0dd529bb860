// Package clock supplies the wall-clock seconds source shared by the kiosk
// engine, the timer engine and the session timer.
//
// Timestamps are float seconds since the Unix epoch so they can be stored in
// the ledger unchanged and compared with client supplied times.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in seconds.
type Clock interface {
	Now() float64
}

// System reads the host clock.
type System struct{}

// Now implements Clock.
func (System) Now() float64 {
	return Seconds(time.Now())
}

// Seconds converts a time.Time into float epoch seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Time converts float epoch seconds back into a UTC time.Time.
func Time(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second))).UTC()
}

// Manual is a Clock whose value only moves when told to.
//
// Thread-safety: all methods are safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now float64
}

// NewManual creates a manual clock positioned at start.
func NewManual(start float64) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to an absolute position. Moving backwards is allowed so
// tests can exercise clock anomalies.
func (m *Manual) Set(seconds float64) {
	m.mu.Lock()
	m.now = seconds
	m.mu.Unlock()
}

// Advance moves the clock forward by delta seconds and returns the new value.
func (m *Manual) Advance(delta float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += delta
	return m.now
}
