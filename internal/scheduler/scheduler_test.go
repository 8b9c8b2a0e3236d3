package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trialgate/internal/trial/models"
)

type recordingHandler struct {
	mu       sync.Mutex
	fired    []models.Job
	sweeps   int
	restore  []models.Job
	firedCh  chan models.Job
	sweepCh  chan struct{}
	onHandle func(models.Job)
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{firedCh: make(chan models.Job, 16), sweepCh: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleJob(_ context.Context, job models.Job) error {
	h.mu.Lock()
	h.fired = append(h.fired, job)
	cb := h.onHandle
	h.mu.Unlock()
	if cb != nil {
		cb(job)
	}
	h.firedCh <- job
	return nil
}

func (h *recordingHandler) Sweep(context.Context) error {
	h.mu.Lock()
	h.sweeps++
	h.mu.Unlock()
	h.sweepCh <- struct{}{}
	return nil
}

func (h *recordingHandler) RestoreJobs(context.Context) ([]models.Job, error) {
	return h.restore, nil
}

type SchedulerSuite struct {
	suite.Suite
	sched   *Scheduler
	handler *recordingHandler
	base    time.Time
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.sched = New()
	s.handler = newRecordingHandler()
	s.base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
}

func (s *SchedulerSuite) job(user models.UserID, kind models.JobKind, at time.Time) models.Job {
	return models.Job{ID: models.JobID(user, kind), UserID: user, Kind: kind, FireAt: at, JoinTime: s.base}
}

func (s *SchedulerSuite) TestFireDueInOrder() {
	s.sched.Schedule(s.job(1, models.JobExpiry, s.base.Add(3*time.Hour)))
	s.sched.Schedule(s.job(1, models.JobReminder24h, s.base.Add(time.Hour)))
	s.sched.Schedule(s.job(2, models.JobReminder24h, s.base.Add(2*time.Hour)))

	n := s.sched.FireDue(context.Background(), s.handler, s.base.Add(2*time.Hour))
	s.Equal(2, n)
	s.Require().Len(s.handler.fired, 2)
	s.Equal(models.UserID(1), s.handler.fired[0].UserID)
	s.Equal(models.UserID(2), s.handler.fired[1].UserID)
	s.Equal(1, s.sched.Len())
}

func (s *SchedulerSuite) TestScheduleReplacesSameID() {
	s.sched.Schedule(s.job(1, models.JobExpiry, s.base.Add(time.Hour)))
	s.sched.Schedule(s.job(1, models.JobExpiry, s.base.Add(5*time.Hour)))
	s.Equal(1, s.sched.Len())

	job, ok := s.sched.Pending(models.JobID(1, models.JobExpiry))
	s.Require().True(ok)
	s.Equal(s.base.Add(5*time.Hour), job.FireAt)

	s.Zero(s.sched.FireDue(context.Background(), s.handler, s.base.Add(2*time.Hour)))
}

func (s *SchedulerSuite) TestCancel() {
	s.sched.Schedule(s.job(1, models.JobExpiry, s.base))
	s.sched.Schedule(s.job(1, models.JobReminder24h, s.base))
	s.sched.Cancel(models.JobID(1, models.JobExpiry))
	s.sched.Cancel("unknown")

	s.Equal(1, s.sched.FireDue(context.Background(), s.handler, s.base))
	s.Equal(models.JobReminder24h, s.handler.fired[0].Kind)
}

func (s *SchedulerSuite) TestHandlerMayReschedule() {
	s.handler.onHandle = func(job models.Job) {
		if job.Kind == models.JobExpiry && job.FireAt.Equal(s.base) {
			job.FireAt = s.base.Add(time.Hour)
			s.sched.Schedule(job)
		}
	}
	s.sched.Schedule(s.job(1, models.JobExpiry, s.base))
	s.Equal(1, s.sched.FireDue(context.Background(), s.handler, s.base))
	s.Equal(1, s.sched.Len())
}

func (s *SchedulerSuite) TestRunRestoresAndFires() {
	now := time.Now()
	s.handler.restore = []models.Job{
		s.job(1, models.JobExpiry, now.Add(-time.Minute)),
		s.job(2, models.JobExpiry, now.Add(time.Hour)),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.sched.Run(ctx, s.handler) }()

	select {
	case job := <-s.handler.firedCh:
		s.Equal(models.UserID(1), job.UserID)
	case <-time.After(2 * time.Second):
		s.Fail("overdue restored job did not fire")
	}

	s.sched.Schedule(s.job(3, models.JobReminder24h, time.Now().Add(20*time.Millisecond)))
	select {
	case job := <-s.handler.firedCh:
		s.Equal(models.UserID(3), job.UserID)
	case <-time.After(2 * time.Second):
		s.Fail("scheduled job did not fire")
	}

	cancel()
	s.NoError(<-done)
	s.Equal(1, s.sched.Len())
}

func (s *SchedulerSuite) TestRunSweeps() {
	s.sched = New(WithSweepInterval(10 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.sched.Run(ctx, s.handler) }()

	select {
	case <-s.handler.sweepCh:
	case <-time.After(2 * time.Second):
		s.Fail("sweep did not run")
	}
}

type failingRestore struct{ recordingHandler }

func (*failingRestore) RestoreJobs(context.Context) ([]models.Job, error) {
	return nil, errors.New("store down")
}

func (s *SchedulerSuite) TestRunFailsWhenRestoreFails() {
	err := s.sched.Run(context.Background(), &failingRestore{})
	s.Error(err)
}
