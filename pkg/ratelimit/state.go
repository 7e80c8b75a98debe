// Package ratelimit paces requests to the launch API and honors the
// limits the server advertises through X-RateLimit-* and Retry-After
// headers.
package ratelimit

import (
	"time"
)

// Thresholds on the advertised remaining request budget.
const (
	// ThresholdWarning applies throttling when fewer requests remain.
	ThresholdWarning = 5

	// ThrottleDelay is added before each request while throttling.
	ThrottleDelay = 250 * time.Millisecond
)

// State is the last rate limit state reported by the server.
type State struct {
	// Limit is the window size from X-RateLimit-Limit (-1 if unknown).
	Limit int `json:"limit"`

	// Remaining is from X-RateLimit-Remaining (-1 if unknown).
	Remaining int `json:"remaining"`

	// ResetAt is when the server window resets.
	ResetAt time.Time `json:"reset_at"`

	// RetryAfter is set from a 429 response. No request is sent before it.
	RetryAfter time.Time `json:"retry_after"`

	LastUpdate time.Time `json:"last_update"`
}

// UnknownState is the state before any response has been seen.
func UnknownState() State {
	return State{Limit: -1, Remaining: -1}
}

// InCooldown returns true while a Retry-After instruction is active.
func (s State) InCooldown(now time.Time) bool {
	return now.Before(s.RetryAfter)
}

// NeedsThrottling returns true when the remaining budget is known and low.
func (s State) NeedsThrottling(now time.Time) bool {
	if s.Remaining < 0 || s.Remaining >= ThresholdWarning {
		return false
	}
	// A passed reset means the budget has been refilled
	return s.ResetAt.IsZero() || now.Before(s.ResetAt)
}

// IsHealthy reports whether requests flow without extra delay.
func (s State) IsHealthy(now time.Time) bool {
	return !s.InCooldown(now) && !s.NeedsThrottling(now)
}

// TimeUntilRetry returns the remaining cooldown, or 0.
func (s State) TimeUntilRetry(now time.Time) time.Duration {
	d := s.RetryAfter.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
