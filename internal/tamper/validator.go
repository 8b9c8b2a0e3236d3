// Package tamper checks ActiveTrial records for consistency and keeps the
// monotonic clock the lifecycle engine runs on.
package tamper

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"trialgate/internal/platform/logger"
	"trialgate/internal/platform/metrics"
	"trialgate/internal/trial/models"
	"trialgate/pkg/requestcontext"
)

// Reason names why a record failed validation.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonClockTamper       Reason = "clock_tamper"
	ReasonInvalidDuration   Reason = "invalid_duration"
	ReasonRecordMismatch    Reason = "record_mismatch"
	ReasonStaleRecord       Reason = "stale_record"
	ReasonSignatureMismatch Reason = "signature_mismatch"
)

const (
	DefaultEndTolerance = time.Hour
	DefaultMaxRecordAge = 30 * 24 * time.Hour
	// regressionStep is added to the last observed time when the clock goes backwards.
	regressionStep = time.Second
)

// Result is the outcome of Validate.
type Result struct {
	Valid  bool
	Reason Reason
}

// Validator applies the consistency checks and owns the clock ratchet.
type Validator struct {
	signer       *Signer
	endTolerance time.Duration
	maxAge       time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	clock        func(context.Context) time.Time

	mu   sync.Mutex
	last time.Time
}

type Option func(*Validator)

func WithSigner(s *Signer) Option {
	return func(v *Validator) { v.signer = s }
}

func WithMaxRecordAge(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.maxAge = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// WithClock replaces the time source read by Effective.
func WithClock(clock func(context.Context) time.Time) Option {
	return func(v *Validator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		endTolerance: DefaultEndTolerance,
		maxAge:       DefaultMaxRecordAge,
		logger:       slog.Default(),
		clock:        requestcontext.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Effective reads the clock and returns the working time. The clock is read
// under the ratchet lock, so concurrent callers observe it in order.
//
// A reading behind the last observed time yields last+1s for this call only
// and a CRITICAL log entry. last itself only ever holds real readings.
func (v *Validator) Effective(ctx context.Context) time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock(ctx)
	if !v.last.IsZero() && now.Before(v.last) {
		working := v.last.Add(regressionStep)
		v.logger.Log(ctx, logger.LevelCritical, "clock regression",
			"observed", now,
			"last_observed", v.last,
			"working_now", working,
		)
		v.metrics.IncrementClockRegression()
		return working
	}
	v.last = now
	return now
}

// Check validates t against a fresh working time and returns that time.
func (v *Validator) Check(ctx context.Context, t *models.ActiveTrial) (Result, time.Time) {
	now := v.Effective(ctx)
	return v.Validate(t, now), now
}

// Validate runs the checks in order against now and reports the first
// failure. It does not mutate the record or touch the ratchet.
func (v *Validator) Validate(t *models.ActiveTrial, now time.Time) Result {
	switch {
	case t.JoinTime.After(now):
		return Result{Reason: ReasonClockTamper}
	case !models.ValidTrialHours(t.TotalHours):
		return Result{Reason: ReasonInvalidDuration}
	case endDrift(t) > v.endTolerance:
		return Result{Reason: ReasonRecordMismatch}
	case now.Sub(t.JoinTime) > v.maxAge:
		return Result{Reason: ReasonStaleRecord}
	case v.signer != nil && !v.signer.Verify(t):
		return Result{Reason: ReasonSignatureMismatch}
	}
	return Result{Valid: true}
}

// Seal signs t when a signer is configured.
func (v *Validator) Seal(t *models.ActiveTrial) {
	if v.signer != nil {
		t.Signature = v.signer.Sign(t)
	}
}

// Report logs a failed validation at CRITICAL and counts it.
func (v *Validator) Report(ctx context.Context, t *models.ActiveTrial, res Result) {
	if res.Valid {
		return
	}
	v.logger.Log(ctx, logger.LevelCritical, "trial record failed validation",
		"user_id", t.UserID.String(),
		"reason", string(res.Reason),
		"join_time", t.JoinTime,
		"total_hours", t.TotalHours,
		"trial_end_at", t.TrialEndAt,
	)
	v.metrics.IncrementTamper(string(res.Reason))
}

func endDrift(t *models.ActiveTrial) time.Duration {
	expected := t.JoinTime.Add(time.Duration(t.TotalHours) * time.Hour)
	return time.Duration(math.Abs(float64(t.TrialEndAt.Sub(expected))))
}
