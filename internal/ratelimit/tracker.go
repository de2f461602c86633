// Package ratelimit tracks whether the upstream AI provider is cooling down
// after a rate-limit response.
//
// The tracker is per process. Separate instances of the service keep separate
// trackers and may disagree about provider availability; callers treat it as a
// best-effort throttle, not a lock.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultCooldown is applied when no retry-after hint has ever been recorded.
const DefaultCooldown = 60 * time.Second

// State is a point-in-time copy of the tracker fields.
type State struct {
	IsLimited  bool          `json:"is_limited"`
	LimitedAt  *time.Time    `json:"limited_at,omitempty"`
	Cooldown   time.Duration `json:"cooldown"`
	RetryAfter *time.Time    `json:"retry_after,omitempty"`
}

// Status is the availability view derived from IsRateLimited.
type Status struct {
	Available  bool
	RetryAfter *time.Time
	Remaining  time.Duration
}

// Tracker records the provider cooldown. The zero value is not usable; call New.
type Tracker struct {
	mu         sync.Mutex
	isLimited  bool
	limitedAt  time.Time
	cooldown   time.Duration
	retryAfter time.Time

	Clock func() time.Time
}

// New returns a tracker in the available state.
func New() *Tracker {
	return &Tracker{cooldown: DefaultCooldown}
}

// SetRateLimited marks the provider as limited from now. A positive override
// replaces the configured cooldown and is kept for later calls.
func (t *Tracker) SetRateLimited(override ...time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.isLimited = true
	t.limitedAt = now
	if len(override) > 0 && override[0] > 0 {
		t.cooldown = override[0]
	}
	t.retryAfter = now.Add(t.cooldown)
}

// Clear resets the limited flag and timestamps. The cooldown duration is kept.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

// IsRateLimited reports whether a cooldown is active. An expired cooldown is
// cleared as a side effect.
func (t *Tracker) IsRateLimited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limitedLocked(t.now())
}

// Status returns availability, the cooldown deadline and the remaining time.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.limitedLocked(now) {
		return Status{Available: true}
	}

	until := t.retryAfter
	remaining := until.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Status{Available: false, RetryAfter: &until, Remaining: remaining}
}

// Snapshot returns a copy of the state after applying lazy expiry.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.limitedLocked(t.now())

	state := State{IsLimited: t.isLimited, Cooldown: t.cooldown}
	if !t.limitedAt.IsZero() {
		at := t.limitedAt
		state.LimitedAt = &at
	}
	if !t.retryAfter.IsZero() {
		until := t.retryAfter
		state.RetryAfter = &until
	}
	return state
}

// Cooldown returns the cooldown used by the next SetRateLimited without override.
func (t *Tracker) Cooldown() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooldown
}

func (t *Tracker) limitedLocked(now time.Time) bool {
	if !t.isLimited {
		return false
	}
	if now.After(t.retryAfter) {
		t.clearLocked()
		return false
	}
	return true
}

func (t *Tracker) clearLocked() {
	t.isLimited = false
	t.limitedAt = time.Time{}
	t.retryAfter = time.Time{}
}

func (t *Tracker) now() time.Time {
	if t != nil && t.Clock != nil {
		return t.Clock()
	}
	return time.Now().UTC()
}
