// Package sessiontimer accumulates work and idle seconds for one packing
// attempt.
//
// Accounting is delta based: each observation attributes the time since the
// previous observation wholly to work or to idle, depending on how long ago
// the last activity was. Totals never decrease and a non-positive delta is a
// no-op, so repeated or out-of-order polls cannot double-count.
package sessiontimer

// Status values recorded when a timer finishes.
const (
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// Timer is the per-attempt accumulator. It is not safe for concurrent use.
type Timer struct {
	WorktimeSec   float64
	DowntimeSec   float64
	LastActivity  float64
	LastMetricsTS float64
	StartTime     float64
	FinishTime    *float64
	Status        string
}

// New starts a timer at now with the worker considered active.
func New(now float64) *Timer {
	return &Timer{
		LastActivity:  now,
		LastMetricsTS: now,
		StartTime:     now,
	}
}

// Restored rebuilds a timer that already finished with the given totals. The
// finish time is start plus the accumulated seconds.
func Restored(start, worktime, downtime float64, status string) *Timer {
	if status == "" {
		status = StatusDone
	}
	finish := start + worktime + downtime
	return &Timer{
		WorktimeSec:   worktime,
		DowntimeSec:   downtime,
		LastActivity:  finish,
		LastMetricsTS: finish,
		StartTime:     start,
		FinishTime:    &finish,
		Status:        status,
	}
}

// Finished reports whether Finish has been called.
func (t *Timer) Finished() bool { return t.FinishTime != nil }

// Observe accounts the time since the previous observation. The delta counts
// as idle when the worker has been inactive for at least idleThreshold.
// Finished timers are frozen.
func (t *Timer) Observe(now, idleThreshold float64) {
	if t.Finished() {
		return
	}
	delta := now - t.LastMetricsTS
	if delta <= 0 {
		return
	}
	if now-t.LastActivity >= idleThreshold {
		t.DowntimeSec += delta
	} else {
		t.WorktimeSec += delta
	}
	t.LastMetricsTS = now
}

// Activity observes up to now and then marks the worker active at now.
func (t *Timer) Activity(now, idleThreshold float64) {
	t.Observe(now, idleThreshold)
	if t.Finished() {
		return
	}
	if now > t.LastActivity {
		t.LastActivity = now
	}
}

// Finish observes once more and stamps the finish time and status. It reports
// false when the timer had already finished.
func (t *Timer) Finish(now, idleThreshold float64, status string) bool {
	if t.Finished() {
		return false
	}
	t.Observe(now, idleThreshold)
	if status == "" {
		status = StatusDone
	}
	finish := now
	if finish < t.LastMetricsTS {
		finish = t.LastMetricsTS
	}
	t.FinishTime = &finish
	t.Status = status
	return true
}

// Total returns work plus idle seconds.
func (t *Timer) Total() float64 { return t.WorktimeSec + t.DowntimeSec }
