package lifecycle

import (
	"context"
	"time"

	"trialgate/internal/platform/config"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
)

// cooldown describes whether earlier trials block a new one.
type cooldown struct {
	Blocked bool
	// EndsAt is zero when the block has no computable end (a legacy record
	// without ended_at under the block policy).
	EndsAt time.Time
	Reason models.EndedReason
}

// evaluateCooldown applies the cooldown to history. Only expired and left_early
// rows count; blocked_repeat rows are history only.
func (s *Service) evaluateCooldown(history []*models.UsedTrial, now time.Time) cooldown {
	var out cooldown
	for _, u := range history {
		if !u.EndedReason.ConsumesTrial() {
			continue
		}
		if u.EndedAt.IsZero() {
			if s.cfg.MissingEndedAtPolicy != config.MissingEndedAtFallback {
				return cooldown{Blocked: true, Reason: u.EndedReason}
			}
			if end := u.CreatedAt.Add(s.cfg.MissingEndedAtFallback); now.Before(end) && end.After(out.EndsAt) {
				out = cooldown{Blocked: true, EndsAt: end, Reason: u.EndedReason}
			}
			continue
		}
		if end := u.EndedAt.Add(s.cfg.Cooldown); now.Before(end) && end.After(out.EndsAt) {
			out = cooldown{Blocked: true, EndsAt: end, Reason: u.EndedReason}
		}
	}
	return out
}

func (s *Service) cooldownFor(ctx context.Context, userID models.UserID, now time.Time) (cooldown, error) {
	history, err := s.store.ListUsed(ctx, userID)
	if err != nil {
		return cooldown{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trial history")
	}
	return s.evaluateCooldown(history, now), nil
}

func (c cooldown) data() map[string]string {
	if c.EndsAt.IsZero() {
		return nil
	}
	return map[string]string{"cooldown_ends_at": c.EndsAt.Format(time.RFC3339)}
}
