package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonic_NowAdvances(t *testing.T) {
	c := NewMonotonic()
	first := c.Now()
	time.Sleep(5 * time.Millisecond)
	second := c.Now()

	assert.True(t, second.After(first))
	assert.GreaterOrEqual(t, c.Since(first), 5*time.Millisecond)
}

func TestMonotonic_CloseToWallClock(t *testing.T) {
	c := NewMonotonic()
	diff := time.Since(c.Now())
	if diff < 0 {
		diff = -diff
	}
	assert.Less(t, diff, time.Second)
}

func TestAnchor_RetriesOnDrift(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	// Every second reading jumps 100ms ahead until the third attempt.
	now := func() time.Time {
		calls++
		if calls%2 == 0 && calls < 6 {
			return base.Add(100 * time.Millisecond)
		}
		return base
	}

	m := anchor(now)
	assert.Equal(t, 6, calls)
	assert.Equal(t, base, m.Anchor())
}

func TestAnchor_GivesUpAfterMaxAttempts(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	now := func() time.Time {
		calls++
		if calls%2 == 0 {
			return base.Add(time.Second)
		}
		return base
	}

	m := anchor(now)
	assert.NotNil(t, m)
	assert.Equal(t, MaxAnchorAttempts*2, calls)
}

func TestUnixMillisRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 123456000, time.UTC)
	ms := UnixMillis(ts)
	back := FromUnixMillis(ms)

	assert.InDelta(t, float64(ts.UnixNano()), float64(back.UnixNano()), float64(time.Microsecond))
}

func TestFake(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	f.Advance(2 * time.Second)

	assert.Equal(t, start.Add(2*time.Second), f.Now())
	assert.Equal(t, 2*time.Second, f.Since(start))
}
