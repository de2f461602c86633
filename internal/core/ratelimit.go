package core

import "time"

// RateLimitState is the persisted request window for one upstream host
// (api.themoviedb.org, www.omdbapi.com). It is shared by every process that
// opens the same store.
type RateLimitState struct {
	RequestCount int
	WindowStart  time.Time
	BackoffUntil *time.Time
	Last429At    *time.Time
}

// NewRateLimitState opens an empty window at now.
func NewRateLimitState(now time.Time) *RateLimitState {
	return &RateLimitState{WindowStart: now}
}

// BackedOff reports the remaining backoff imposed by a 429, if any.
func (s *RateLimitState) BackedOff(now time.Time) (time.Duration, bool) {
	if s == nil || s.BackoffUntil == nil || !now.Before(*s.BackoffUntil) {
		return 0, false
	}
	return s.BackoffUntil.Sub(now), true
}

// Rollover starts a fresh window when the current one is older than window.
func (s *RateLimitState) Rollover(now time.Time, window time.Duration) {
	if s.WindowStart.IsZero() || now.After(s.WindowStart.Add(window)) {
		s.RequestCount = 0
		s.WindowStart = now
	}
}

// WindowEnd is when the current window reopens.
func (s *RateLimitState) WindowEnd(window time.Duration) time.Time {
	return s.WindowStart.Add(window)
}

// NoteThrottled records a 429 at now. A positive retryAfter also sets the
// backoff deadline; zero keeps any earlier deadline.
func (s *RateLimitState) NoteThrottled(now time.Time, retryAfter time.Duration) {
	s.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		s.BackoffUntil = &until
	}
}
