package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitStateBackoff(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	state := NewRateLimitState(now)

	_, ok := state.BackedOff(now)
	assert.False(t, ok)

	state.NoteThrottled(now, 30*time.Second)
	wait, ok := state.BackedOff(now.Add(10 * time.Second))
	assert.True(t, ok)
	assert.Equal(t, 20*time.Second, wait)
	assert.Equal(t, now, *state.Last429At)

	_, ok = state.BackedOff(now.Add(30 * time.Second))
	assert.False(t, ok)

	// A 429 without Retry-After keeps the earlier deadline.
	later := now.Add(5 * time.Second)
	state.NoteThrottled(later, 0)
	assert.Equal(t, later, *state.Last429At)
	assert.Equal(t, now.Add(30*time.Second), *state.BackoffUntil)

	var missing *RateLimitState
	_, ok = missing.BackedOff(now)
	assert.False(t, ok)
}

func TestRateLimitStateRollover(t *testing.T) {
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	state := &RateLimitState{RequestCount: 40, WindowStart: start}

	state.Rollover(start.Add(5*time.Second), 10*time.Second)
	assert.Equal(t, 40, state.RequestCount)
	assert.Equal(t, start.Add(10*time.Second), state.WindowEnd(10*time.Second))

	state.Rollover(start.Add(11*time.Second), 10*time.Second)
	assert.Equal(t, 0, state.RequestCount)
	assert.Equal(t, start.Add(11*time.Second), state.WindowStart)

	empty := &RateLimitState{RequestCount: 3}
	empty.Rollover(start, time.Minute)
	assert.Equal(t, 0, empty.RequestCount)
	assert.Equal(t, start, empty.WindowStart)
}
