package models

import (
	"math"
	"time"
)

// Scope names what a limiter subject identifies.
type Scope string

const (
	ScopeIP   Scope = "ip"
	ScopeUser Scope = "user"
)

// Action names the throttled operation. Counters are independent per action.
type Action string

const (
	ActionInitialView Action = "initial_view"
	ActionStatusCheck Action = "status_check"
	ActionVerifyStep1 Action = "verify_step1"
	ActionVerifyPhone Action = "verify_phone"
)

// FailMode decides the outcome when the counter store cannot be reached.
type FailMode int

const (
	// FailClosed denies the call. Used for actions that write state.
	FailClosed FailMode = iota
	// FailOpen permits the call. Used for read-only checks.
	FailOpen
)

func (m FailMode) String() string {
	if m == FailOpen {
		return "open"
	}
	return "closed"
}

// Policy binds an action to its limit, window, subject scope and fail mode.
type Policy struct {
	Action   Action
	Scope    Scope
	Limit    int
	Window   time.Duration
	FailMode FailMode
}

// Policies enforced by the lifecycle engine and the HTTP surface.
var (
	PolicyInitialView = Policy{Action: ActionInitialView, Scope: ScopeIP, Limit: 5, Window: time.Hour, FailMode: FailClosed}
	PolicyStatusCheck = Policy{Action: ActionStatusCheck, Scope: ScopeIP, Limit: 20, Window: 15 * time.Minute, FailMode: FailOpen}
	PolicyVerifyStep1 = Policy{Action: ActionVerifyStep1, Scope: ScopeUser, Limit: 3, Window: time.Hour, FailMode: FailClosed}
	PolicyVerifyPhone = Policy{Action: ActionVerifyPhone, Scope: ScopeUser, Limit: 3, Window: time.Hour, FailMode: FailClosed}
)

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	// Degraded is set when the decision was made without the primary store.
	Degraded bool `json:"-"`
}

// Window is one fixed counting window for a subject key.
type Window struct {
	SubjectKey  string
	WindowStart time.Time
	Count       int
}

// NewResult derives the public result from a post-increment count.
func NewResult(count, limit int, resetAt, now time.Time) *RateLimitResult {
	res := &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = max(int(math.Ceil(resetAt.Sub(now).Seconds())), 1)
	}
	return res
}
