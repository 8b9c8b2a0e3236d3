// Package models defines the persisted trial records and lifecycle states.
package models

import (
	"strconv"
	"time"
)

// UserID is the stable identifier of a user in the messaging domain.
type UserID int64

func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID parses a decimal user id. Zero and negative ids are rejected.
func ParseUserID(s string) (UserID, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return UserID(v), true
}

// Trial durations. No other value is valid for an ActiveTrial.
const (
	WeekdayTrialHours = 72
	WeekendTrialHours = 120
)

// MaxAttemptHistory caps PendingVerification.AttemptTimestamps.
const MaxAttemptHistory = 20

// ValidTrialHours reports whether h is an allowed trial duration.
func ValidTrialHours(h int) bool {
	return h == WeekdayTrialHours || h == WeekendTrialHours
}

// Block reasons recorded on a PendingVerification.
const (
	BlockReasonPhone = "blocked_phone"
)

// PendingVerification holds pre-trial verification progress.
type PendingVerification struct {
	UserID            UserID
	DisplayName       string
	Country           string
	Email             string
	SourceIP          string
	MarketingOptIn    bool
	Step1Passed       bool
	Phone             string
	State             State
	BlockReason       string
	ManualReview      bool
	AttemptTimestamps []time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RecordAttempt appends now to the attempt history, keeping the newest entries.
func (p *PendingVerification) RecordAttempt(now time.Time) {
	p.AttemptTimestamps = append(p.AttemptTimestamps, now)
	if n := len(p.AttemptTimestamps); n > MaxAttemptHistory {
		p.AttemptTimestamps = append([]time.Time(nil), p.AttemptTimestamps[n-MaxAttemptHistory:]...)
	}
	p.UpdatedAt = now
}

// Terminal reports whether the pending record ended verification for good.
func (p *PendingVerification) Terminal() bool {
	return p.State == StateCooldownBlocked
}

// ActiveTrial is a running trial. TrialEndAt must equal JoinTime+TotalHours.
type ActiveTrial struct {
	UserID     UserID
	JoinTime   time.Time
	TotalHours int
	TrialEndAt time.Time
	Signature  []byte
}

// Duration is the configured trial length.
func (t *ActiveTrial) Duration() time.Duration {
	return time.Duration(t.TotalHours) * time.Hour
}

// Progress returns elapsed and remaining hours at now, clamped to [0, TotalHours].
func (t *ActiveTrial) Progress(now time.Time) (elapsed, remaining float64) {
	total := float64(t.TotalHours)
	elapsed = min(max(now.Sub(t.JoinTime).Hours(), 0), total)
	remaining = max(total-elapsed, 0)
	return elapsed, remaining
}

// EndedReason explains how a trial stopped.
type EndedReason string

const (
	EndedExpired       EndedReason = "expired"
	EndedLeftEarly     EndedReason = "left_early"
	EndedBlockedRepeat EndedReason = "blocked_repeat"
)

// ConsumesTrial reports whether the reason counts toward the cooldown.
// blocked_repeat rows are history only.
func (r EndedReason) ConsumesTrial() bool {
	return r == EndedExpired || r == EndedLeftEarly
}

// UsedTrial is an append-only terminal record. A zero EndedAt marks a legacy
// record whose end time was never captured.
type UsedTrial struct {
	ID             int64
	UserID         UserID
	EndedReason    EndedReason
	EndedAt        time.Time
	HoursUsed      *float64
	HoursRemaining *float64
	RemovalPending bool
	CreatedAt      time.Time
}

// Invite is a single-use, time-bounded invite link.
type Invite struct {
	UserID    UserID
	Link      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the invite can still be used at now.
func (i *Invite) Live(now time.Time) bool {
	return i != nil && now.Before(i.ExpiresAt)
}

// Ban is set by an operator; it absorbs every lifecycle event.
type Ban struct {
	UserID    UserID
	Reason    string
	CreatedAt time.Time
}
