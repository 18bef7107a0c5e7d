// Package clock provides the time source used to stamp samples on both
// sides of the process boundary.
package clock

import (
	"time"
)

// MaxAnchorAttempts bounds how often the anchor is re-established.
const MaxAnchorAttempts = 3

// MaxAnchorDrift is the largest accepted gap between the wall reading and
// the monotonic reading taken while anchoring.
const MaxAnchorDrift = 16 * time.Millisecond

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// Monotonic derives wall-clock timestamps from a single anchor plus the
// elapsed monotonic time, so later readings are immune to wall-clock steps.
type Monotonic struct {
	wall time.Time
	base time.Time
}

// NewMonotonic anchors a new clock.
func NewMonotonic() *Monotonic {
	return anchor(time.Now)
}

func anchor(now func() time.Time) *Monotonic {
	var m *Monotonic
	for attempt := 0; attempt < MaxAnchorAttempts; attempt++ {
		wall := now().Round(0)
		base := now()
		m = &Monotonic{wall: wall, base: base}

		drift := base.Round(0).Sub(wall)
		if drift < 0 {
			drift = -drift
		}
		if drift <= MaxAnchorDrift {
			break
		}
	}
	return m
}

// Now returns the anchored wall time advanced by the monotonic elapsed time.
func (m *Monotonic) Now() time.Time {
	return m.wall.Add(time.Since(m.base))
}

// Since returns the time elapsed since t.
func (m *Monotonic) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// Anchor returns the wall time captured when the clock was anchored.
func (m *Monotonic) Anchor() time.Time {
	return m.wall
}

// UnixMillis converts t into fractional Unix milliseconds, the unit used
// for timestamps on the wire.
func UnixMillis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// FromUnixMillis is the inverse of UnixMillis.
func FromUnixMillis(ms float64) time.Time {
	return time.Unix(0, int64(ms*float64(time.Millisecond)))
}

// Real uses the standard time package.
type Real struct{}

func (Real) Now() time.Time                   { return time.Now() }
func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Fake is a test clock that can be manually advanced.
type Fake struct {
	current time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

func (f *Fake) Now() time.Time                   { return f.current }
func (f *Fake) Since(t time.Time) time.Duration { return f.current.Sub(t) }
func (f *Fake) Advance(d time.Duration)         { f.current = f.current.Add(d) }
func (f *Fake) Set(t time.Time)                 { f.current = t }
