// Package scheduler fires time-based trial jobs from a single goroutine.
//
// Jobs live only in memory; after a restart they are rebuilt from the stored
// trials through Handler.RestoreJobs.
package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"trialgate/internal/platform/logger"
	"trialgate/internal/platform/metrics"
	"trialgate/internal/trial/models"
)

// Handler executes fired jobs and the periodic sweep.
type Handler interface {
	HandleJob(ctx context.Context, job models.Job) error
	Sweep(ctx context.Context) error
	RestoreJobs(ctx context.Context) ([]models.Job, error)
}

// Scheduler holds a min-heap of jobs keyed by id.
type Scheduler struct {
	mu    sync.Mutex
	jobs  jobHeap
	index map[string]*item
	wake  chan struct{}

	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Scheduler)

func WithSweepInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithClock replaces time.Now for due checks.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		index:         make(map[string]*item),
		wake:          make(chan struct{}, 1),
		sweepInterval: time.Hour,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule adds job, replacing any job with the same id.
func (s *Scheduler) Schedule(job models.Job) {
	s.mu.Lock()
	if it, ok := s.index[job.ID]; ok {
		it.job = job
		heap.Fix(&s.jobs, it.index)
	} else {
		it := &item{job: job}
		heap.Push(&s.jobs, it)
		s.index[job.ID] = it
	}
	n := len(s.jobs)
	s.mu.Unlock()

	s.metrics.SetJobsScheduled(n)
	s.notify()
}

// Cancel removes the job with id. Unknown ids are ignored.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	it, ok := s.index[id]
	if ok {
		heap.Remove(&s.jobs, it.index)
		delete(s.index, id)
	}
	n := len(s.jobs)
	s.mu.Unlock()

	if ok {
		s.metrics.SetJobsScheduled(n)
		s.notify()
	}
}

// Len returns the number of pending jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Pending returns a copy of the job with id.
func (s *Scheduler) Pending(id string) (models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.index[id]
	if !ok {
		return models.Job{}, false
	}
	return it.job, true
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Restore loads the jobs the handler rebuilds from stored state.
func (s *Scheduler) Restore(ctx context.Context, h Handler) error {
	jobs, err := h.RestoreJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.Schedule(job)
	}
	return nil
}

// FireDue runs every job due at now, earliest first, and returns how many ran.
// Handlers run without the scheduler lock so they may schedule or cancel.
func (s *Scheduler) FireDue(ctx context.Context, h Handler, now time.Time) int {
	s.mu.Lock()
	var due []models.Job
	for len(s.jobs) > 0 && !s.jobs[0].job.FireAt.After(now) {
		it := heap.Pop(&s.jobs).(*item)
		delete(s.index, it.job.ID)
		due = append(due, it.job)
	}
	n := len(s.jobs)
	s.mu.Unlock()

	if len(due) > 0 {
		s.metrics.SetJobsScheduled(n)
	}
	for _, job := range due {
		if err := h.HandleJob(ctx, job); err != nil {
			s.logger.ErrorContext(ctx, "job failed",
				"job_id", job.ID,
				"user_id", job.UserID.String(),
				"kind", string(job.Kind),
				logger.Err(err),
			)
		}
	}
	return len(due)
}

// next returns the earliest fire time.
func (s *Scheduler) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return time.Time{}, false
	}
	return s.jobs[0].job.FireAt, true
}

// Run restores jobs, then fires them and the periodic sweep until ctx ends.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	if err := s.Restore(ctx, h); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "scheduler started", "jobs", s.Len(), "sweep_interval", s.sweepInterval)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()

	for {
		s.FireDue(ctx, h, s.now())

		wait := time.Hour
		if at, ok := s.next(); ok {
			wait = max(at.Sub(s.now()), 0)
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-s.wake:
		case <-timer.C:
		case <-sweep.C:
			if err := h.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", logger.Err(err))
			}
		}
	}
}
