package lifecycle

import (
	"context"
	"time"

	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
)

// Status is a read-only view of a user's lifecycle.
type Status struct {
	UserID          models.UserID
	State           models.State
	ElapsedHours    *float64
	RemainingHours  *float64
	TotalHours      int
	TrialEndAt      *time.Time
	InviteLink      string
	InviteExpiresAt *time.Time
	CooldownEndsAt  *time.Time
	BlockReason     string
	ManualReview    bool
}

// GetStatus derives the state from the stored records. It never mutates them.
func (s *Service) GetStatus(ctx context.Context, userID models.UserID) (_ *Status, err error) {
	ctx, span := s.startSpan(ctx, "GetStatus", userID)
	defer func() { endSpan(span, err) }()

	if userID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	return s.status(ctx, userID, s.now(ctx))
}

// status resolves the state with a fixed precedence: ban, active trial,
// blocked verification, cooldown, live invite, pending verification.
func (s *Service) status(ctx context.Context, userID models.UserID, now time.Time) (*Status, error) {
	st := &Status{UserID: userID, State: models.StateNone}

	banned, err := s.isBanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		st.State = models.StateBanned
		return st, nil
	}

	active, err := s.activeTrial(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		elapsed, remaining := active.Progress(now)
		end := active.TrialEndAt
		st.State = models.StateActive
		if !now.Before(end) {
			st.State = models.StateExpired
		}
		st.ElapsedHours = &elapsed
		st.RemainingHours = &remaining
		st.TotalHours = active.TotalHours
		st.TrialEndAt = &end
		return st, nil
	}

	p, err := s.pending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil && p.Terminal() {
		st.State = models.StateCooldownBlocked
		st.BlockReason = p.BlockReason
		return st, nil
	}

	history, err := s.store.ListUsed(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trial history")
	}
	if cd := s.evaluateCooldown(history, now); cd.Blocked {
		st.State = models.StateCooldownBlocked
		switch cd.Reason {
		case models.EndedExpired:
			st.State = models.StateExpired
		case models.EndedLeftEarly:
			st.State = models.StateLeftEarly
		}
		if !cd.EndsAt.IsZero() {
			end := cd.EndsAt
			st.CooldownEndsAt = &end
		}
		return st, nil
	}

	inv, err := s.invite(ctx, userID)
	if err != nil {
		return nil, err
	}
	if inv.Live(now) && p != nil && p.State == models.StatePhoneVerified {
		exp := inv.ExpiresAt
		st.State = models.StateInviteIssued
		st.InviteLink = inv.Link
		st.InviteExpiresAt = &exp
		st.ManualReview = p.ManualReview
		return st, nil
	}

	if p != nil {
		st.State = p.State
		st.ManualReview = p.ManualReview
	}
	return st, nil
}
