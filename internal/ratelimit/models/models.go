// Package models holds the rate limiting value types shared by stores and
// middleware.
package models

import "time"

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassWrite covers state-changing requests.
	ClassWrite EndpointClass = "write"
	// ClassAuth covers staff login.
	ClassAuth EndpointClass = "auth"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when denied
}

// Denied builds the result for a request over budget. The caller may retry
// once the oldest counted request leaves the window.
func Denied(limit int, oldest time.Time, window time.Duration, now time.Time) *Result {
	reset := oldest.Add(window)
	if !reset.After(now) {
		reset = now.Add(time.Second)
	}
	retry := int(reset.Sub(now).Round(time.Second) / time.Second)
	if retry < 1 {
		retry = 1
	}
	return &Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    reset,
		RetryAfter: retry,
	}
}
