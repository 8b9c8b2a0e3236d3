package lifecycle

import (
	"context"
	"fmt"
	"time"

	"trialgate/internal/platform/logger"
	"trialgate/internal/tamper"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/audit"
)

// HandleJob runs a fired reminder or expiry job. Jobs may fire late, twice or
// after their trial ended; each run re-checks the stored trial first.
func (s *Service) HandleJob(ctx context.Context, job models.Job) (err error) {
	ctx, span := s.startSpan(ctx, "HandleJob", job.UserID)
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(job.UserID)
	defer unlock()

	trial, err := s.activeTrial(ctx, job.UserID)
	if err != nil {
		return err
	}
	if trial == nil || !trial.JoinTime.Equal(job.JoinTime) {
		s.logger.DebugContext(ctx, "stale job skipped", "user_id", job.UserID.String(), "kind", string(job.Kind))
		return nil
	}
	res, now := s.validator.Check(ctx, trial)
	now = now.UTC()
	if !res.Valid {
		_, err := s.expireTampered(ctx, trial, now, res)
		return err
	}
	s.metrics.IncrementJobFired(string(job.Kind))

	if job.Kind == models.JobExpiry {
		if now.Before(trial.TrialEndAt) {
			job.FireAt = trial.TrialEndAt
			s.scheduler.Schedule(job)
			return nil
		}
		_, err := s.finalizeExpired(ctx, trial, now, true)
		return err
	}

	if !job.Kind.IsReminder() {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unknown job kind %q", job.Kind))
	}
	if !now.Before(trial.TrialEndAt) {
		return nil
	}
	_, remaining := trial.Progress(now)
	s.notify(ctx, job.UserID, models.TemplateTrialReminder, map[string]string{
		"reminder":        string(job.Kind),
		"hours_remaining": fmt.Sprintf("%.0f", remaining),
		"trial_end_at":    trial.TrialEndAt.Format(time.RFC3339),
	}, job.DedupeKey())
	return nil
}

// Sweep validates every active trial, expires those past their end or failing
// validation, and retries member removals that failed earlier.
func (s *Service) Sweep(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "Sweep", 0)
	defer func() { endSpan(span, err) }()

	started := time.Now()
	trials, err := s.store.ListActive(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active trials")
	}
	expired := 0
	for _, t := range trials {
		ok, err := s.sweepTrial(ctx, t.UserID)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep failed for trial", "user_id", t.UserID.String(), logger.Err(err))
			continue
		}
		if ok {
			expired++
		}
	}
	s.retryRemovals(ctx)
	s.metrics.ObserveSweep(time.Since(started).Seconds(), expired)
	s.logger.InfoContext(ctx, "sweep completed", "active", len(trials), "expired", expired)
	return nil
}

func (s *Service) sweepTrial(ctx context.Context, userID models.UserID) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	trial, err := s.activeTrial(ctx, userID)
	if err != nil || trial == nil {
		return false, err
	}
	res, now := s.validator.Check(ctx, trial)
	now = now.UTC()
	if !res.Valid {
		return s.expireTampered(ctx, trial, now, res)
	}
	if now.Before(trial.TrialEndAt) {
		return false, nil
	}
	return s.finalizeExpired(ctx, trial, now, true)
}

func (s *Service) retryRemovals(ctx context.Context) {
	pending, err := s.store.ListRemovalPending(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list pending removals", logger.Err(err))
		return
	}
	for _, u := range pending {
		s.retryRemoval(ctx, u)
	}
}

// retryRemoval removes a member whose earlier removal failed. A trial that
// started after the row ended is legitimate membership: the flag is cleared
// and the member stays.
func (s *Service) retryRemoval(ctx context.Context, u *models.UsedTrial) {
	unlock := s.locks.Lock(u.UserID)
	defer unlock()

	trial, err := s.activeTrial(ctx, u.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load active trial for removal retry", "user_id", u.UserID.String(), logger.Err(err))
		return
	}
	if trial == nil || !trial.JoinTime.After(u.EndedAt) {
		if !s.removeMember(ctx, u.UserID, s.now(ctx)) {
			return
		}
	} else {
		s.logger.InfoContext(ctx, "removal retry superseded by a newer trial", "user_id", u.UserID.String())
	}
	if err := s.store.ClearRemovalPending(ctx, u.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear removal flag", "user_id", u.UserID.String(), logger.Err(err))
	}
}

// expireTampered force-expires a record that failed validation. The record is
// never repaired.
func (s *Service) expireTampered(ctx context.Context, trial *models.ActiveTrial, now time.Time, res tamper.Result) (bool, error) {
	s.validator.Report(ctx, trial, res)
	s.emit(ctx, trial.UserID, audit.ActionTamperDetected, string(res.Reason))
	return s.finalizeExpired(ctx, trial, now, true)
}

// RestoreJobs rebuilds the schedule from stored trials after a restart.
// Reminders already due are dropped; expiry jobs are always returned so
// overdue trials expire as soon as the scheduler starts.
func (s *Service) RestoreJobs(ctx context.Context) (_ []models.Job, err error) {
	ctx, span := s.startSpan(ctx, "RestoreJobs", 0)
	defer func() { endSpan(span, err) }()

	trials, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active trials")
	}
	now := s.now(ctx)
	var jobs []models.Job
	for _, t := range trials {
		for _, job := range models.JobsFor(t) {
			if job.Kind.IsReminder() && !job.FireAt.After(now) {
				continue
			}
			jobs = append(jobs, job)
		}
	}
	s.logger.InfoContext(ctx, "restored trial jobs", "trials", len(trials), "jobs", len(jobs))
	return jobs, nil
}
