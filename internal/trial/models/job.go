package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies a scheduled action for a trial.
type JobKind string

const (
	JobReminder24h JobKind = "reminder_24h"
	JobReminder48h JobKind = "reminder_48h"
	JobReminder72h JobKind = "reminder_72h"
	JobReminder96h JobKind = "reminder_96h"
	JobExpiry      JobKind = "expiry"
)

// IsReminder reports whether k is one of the reminder kinds.
func (k JobKind) IsReminder() bool {
	switch k {
	case JobReminder24h, JobReminder48h, JobReminder72h, JobReminder96h:
		return true
	}
	return false
}

// jobNamespace seeds deterministic job ids.
var jobNamespace = uuid.MustParse("6f1c2b7e-5d0a-4c39-9e61-3a8d7b2f4e10")

// JobID is stable for (user, kind), so scheduling the same job replaces it.
func JobID(userID UserID, kind JobKind) string {
	return uuid.NewSHA1(jobNamespace, fmt.Appendf(nil, "%d:%s", userID, kind)).String()
}

// Job is a pending scheduled action.
type Job struct {
	ID       string
	UserID   UserID
	Kind     JobKind
	FireAt   time.Time
	JoinTime time.Time
}

// DedupeKey identifies one delivery of this job for one trial.
func (j Job) DedupeKey() string {
	return fmt.Sprintf("%s:%d", j.ID, j.JoinTime.Unix())
}

func reminderKind(offset time.Duration) JobKind {
	return JobKind(fmt.Sprintf("reminder_%dh", int(offset.Hours())))
}

// JobsFor returns every reminder and the expiry job for t.
func JobsFor(t *ActiveTrial) []Job {
	offsets := ReminderOffsets(t.TotalHours)
	jobs := make([]Job, 0, len(offsets)+1)
	for _, off := range offsets {
		kind := reminderKind(off)
		jobs = append(jobs, Job{
			ID:       JobID(t.UserID, kind),
			UserID:   t.UserID,
			Kind:     kind,
			FireAt:   t.JoinTime.Add(off),
			JoinTime: t.JoinTime,
		})
	}
	return append(jobs, Job{
		ID:       JobID(t.UserID, JobExpiry),
		UserID:   t.UserID,
		Kind:     JobExpiry,
		FireAt:   t.TrialEndAt,
		JoinTime: t.JoinTime,
	})
}

// AllJobIDs lists every job id a user can have, for cancellation.
func AllJobIDs(userID UserID) []string {
	kinds := []JobKind{JobReminder24h, JobReminder48h, JobReminder72h, JobReminder96h, JobExpiry}
	ids := make([]string, len(kinds))
	for i, k := range kinds {
		ids[i] = JobID(userID, k)
	}
	return ids
}
