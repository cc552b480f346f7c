// Package clock supplies "now" to the session engine.
//
// Every timing decision (expiry, paused intervals, attempt timestamps) goes
// through a Clock so tests can drive time explicitly.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock (UTC, with the monotonic reading preserved).
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Elapsed returns the active play time between start and now, excluding
// pausedTotal and, when pausedAt is non-nil, the still-open pause interval.
func Elapsed(start, now time.Time, pausedTotal time.Duration, pausedAt *time.Time) time.Duration {
	end := now
	if pausedAt != nil && pausedAt.Before(end) {
		end = *pausedAt
	}
	d := end.Sub(start) - pausedTotal
	if d < 0 {
		return 0
	}
	return d
}
