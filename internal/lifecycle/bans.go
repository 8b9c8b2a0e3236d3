package lifecycle

import (
	"context"

	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/audit"
)

// Ban marks userID as banned. A running trial ends and the member is removed;
// pending verification and invites are discarded.
func (s *Service) Ban(ctx context.Context, userID models.UserID, reason string, actorID string) (err error) {
	ctx, span := s.startSpan(ctx, "Ban", userID)
	defer func() { endSpan(span, err) }()

	if userID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	now := s.now(ctx)

	if err := s.store.SaveBan(ctx, &models.Ban{UserID: userID, Reason: reason, CreatedAt: now}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save ban")
	}
	active, err := s.activeTrial(ctx, userID)
	if err != nil {
		return err
	}
	if active != nil {
		if _, err := s.finalizeExpired(ctx, active, now, true); err != nil {
			return err
		}
	}
	if err := s.store.DeletePending(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear verification")
	}
	if err := s.store.DeleteInvite(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear invite")
	}
	s.transition(ctx, userID, models.StateBanned)
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionUserBanned, UserID: userID.String(), Reason: reason, ActorID: actorID})
	return nil
}

// Unban lifts a ban. Trial history is kept, so the cooldown still applies.
func (s *Service) Unban(ctx context.Context, userID models.UserID, actorID string) (err error) {
	ctx, span := s.startSpan(ctx, "Unban", userID)
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	banned, err := s.isBanned(ctx, userID)
	if err != nil {
		return err
	}
	if !banned {
		return dErrors.New(dErrors.CodeNotFound, "user "+userID.String()+" is not banned")
	}
	if err := s.store.DeleteBan(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete ban")
	}
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionUserUnbanned, UserID: userID.String(), ActorID: actorID})
	return nil
}
