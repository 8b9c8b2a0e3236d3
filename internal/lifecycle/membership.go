package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/audit"
	"trialgate/pkg/platform/sentinel"
)

// MembershipKind is a channel membership change reported by the transport.
type MembershipKind string

const (
	MembershipJoin  MembershipKind = "join"
	MembershipLeave MembershipKind = "leave"
)

// MembershipEvent is a join or leave in the trial channel. ActorID is the
// account that caused the change; it equals the engine's id for removals the
// engine performed.
type MembershipEvent struct {
	UserID  models.UserID
	Kind    MembershipKind
	ActorID int64
}

// HandleMembership applies a join or leave.
func (s *Service) HandleMembership(ctx context.Context, ev MembershipEvent) (err error) {
	ctx, span := s.startSpan(ctx, "HandleMembership", ev.UserID)
	defer func() { endSpan(span, err) }()

	if ev.UserID <= 0 {
		return s.reject(dErrors.CodeValidation, "user id is required")
	}
	switch ev.Kind {
	case MembershipJoin:
		return s.handleJoin(ctx, ev.UserID)
	case MembershipLeave:
		return s.handleLeave(ctx, ev)
	default:
		return s.reject(dErrors.CodeValidation, fmt.Sprintf("unknown membership event %q", ev.Kind))
	}
}

func (s *Service) handleJoin(ctx context.Context, userID models.UserID) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	now := s.now(ctx)

	banned, err := s.isBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		s.removeMember(ctx, userID, now)
		s.emit(ctx, userID, audit.ActionUninvitedJoin, "banned")
		return s.reject(dErrors.CodeIllegalTransition, "user is banned")
	}

	active, err := s.activeTrial(ctx, userID)
	if err != nil {
		return err
	}
	if active != nil {
		s.logger.DebugContext(ctx, "duplicate join ignored", "user_id", userID.String())
		return nil
	}

	cd, err := s.cooldownFor(ctx, userID, now)
	if err != nil {
		return err
	}
	if cd.Blocked {
		removed := s.removeMember(ctx, userID, now)
		repeat := &models.UsedTrial{
			UserID:         userID,
			EndedReason:    models.EndedBlockedRepeat,
			EndedAt:        now,
			RemovalPending: !removed,
			CreatedAt:      now,
		}
		if err := s.store.AppendUsed(ctx, repeat); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record repeat join")
		}
		s.metrics.IncrementRejected(string(dErrors.CodeCooldown))
		s.emit(ctx, userID, audit.ActionRepeatJoin, string(cd.Reason))
		s.notify(ctx, userID, models.TemplateRepeatJoinBlocked, cd.data(), "")
		return nil
	}

	inv, err := s.invite(ctx, userID)
	if err != nil {
		return err
	}
	if inv == nil {
		s.removeMember(ctx, userID, now)
		s.emit(ctx, userID, audit.ActionUninvitedJoin, "no_invite")
		return s.reject(dErrors.CodeIllegalTransition, "join without an issued invite")
	}

	trial := models.NewActiveTrial(userID, now, s.cfg.TimezoneOffsetHours)
	s.validator.Seal(trial)
	if err := s.store.StartTrial(ctx, trial); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to start trial")
	}
	for _, job := range models.JobsFor(trial) {
		s.scheduler.Schedule(job)
	}
	s.transition(ctx, userID, models.StateActive)
	s.emit(ctx, userID, audit.ActionTrialStarted, fmt.Sprintf("%dh", trial.TotalHours))
	s.notify(ctx, userID, models.TemplateTrialStarted, map[string]string{
		"total_hours":  fmt.Sprintf("%d", trial.TotalHours),
		"trial_end_at": trial.TrialEndAt.Format(time.RFC3339),
	}, "")
	return nil
}

func (s *Service) handleLeave(ctx context.Context, ev MembershipEvent) error {
	unlock := s.locks.Lock(ev.UserID)
	defer unlock()
	now := s.now(ctx)

	engine := s.consumeRemoval(ev.UserID, now) || (s.cfg.EngineActorID != 0 && ev.ActorID == s.cfg.EngineActorID)

	active, err := s.activeTrial(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if active == nil {
		s.logger.DebugContext(ctx, "leave without active trial", "user_id", ev.UserID.String(), "engine", engine)
		return nil
	}
	if engine {
		_, err := s.finalizeExpired(ctx, active, now, false)
		return err
	}

	used, remaining := active.Progress(now)
	record := &models.UsedTrial{
		UserID:         ev.UserID,
		EndedReason:    models.EndedLeftEarly,
		EndedAt:        now,
		HoursUsed:      &used,
		HoursRemaining: &remaining,
		CreatedAt:      now,
	}
	if err := s.store.FinalizeTrial(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize trial")
	}
	s.cancelJobs(ev.UserID)
	s.transition(ctx, ev.UserID, models.StateLeftEarly)
	s.emit(ctx, ev.UserID, audit.ActionTrialLeftEarly, fmt.Sprintf("%.1fh remaining", remaining))
	s.notify(ctx, ev.UserID, models.TemplateLeftEarlyFeedback, map[string]string{
		"hours_used":      fmt.Sprintf("%.1f", used),
		"hours_remaining": fmt.Sprintf("%.1f", remaining),
	}, "")
	return nil
}

// finalizeExpired ends trial as expired. When remove is set the member is
// removed first; a failed removal leaves RemovalPending for the sweep.
// Callers hold the user lock.
func (s *Service) finalizeExpired(ctx context.Context, trial *models.ActiveTrial, now time.Time, remove bool) (bool, error) {
	removed := true
	if remove {
		removed = s.removeMember(ctx, trial.UserID, now)
	}
	used, remaining := trial.Progress(now)
	record := &models.UsedTrial{
		UserID:         trial.UserID,
		EndedReason:    models.EndedExpired,
		EndedAt:        now,
		HoursUsed:      &used,
		HoursRemaining: &remaining,
		RemovalPending: !removed,
		CreatedAt:      now,
	}
	if err := s.store.FinalizeTrial(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize trial")
	}
	s.cancelJobs(trial.UserID)
	s.transition(ctx, trial.UserID, models.StateExpired)
	s.emit(ctx, trial.UserID, audit.ActionTrialExpired, "")
	s.notify(ctx, trial.UserID, models.TemplateTrialExpired, nil, "")
	return true, nil
}
