// Package housekeeping periodically removes abandoned verification state.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"trialgate/internal/platform/logger"
)

// Store is the subset of the record store the janitor cleans.
type Store interface {
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int, error)
	DeleteExpiredInvites(ctx context.Context, now time.Time) (int, error)
}

// Pruner drops idle in-memory rate-limit windows.
type Pruner interface {
	Prune(ctx context.Context) int
}

// Result counts what one pass removed.
type Result struct {
	StalePending   int
	ExpiredInvites int
	PrunedWindows  int
}

// Janitor runs cleanup passes on a cron schedule.
type Janitor struct {
	store        Store
	pruner       Pruner
	pendingTTL   time.Duration
	schedule     string
	initialDelay time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

type Option func(*Janitor)

func WithPruner(p Pruner) Option {
	return func(j *Janitor) { j.pruner = p }
}

func WithPendingTTL(d time.Duration) Option {
	return func(j *Janitor) {
		if d > 0 {
			j.pendingTTL = d
		}
	}
}

// WithSchedule takes a standard cron spec or a descriptor such as "@every 1h".
func WithSchedule(spec string) Option {
	return func(j *Janitor) {
		if spec != "" {
			j.schedule = spec
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(j *Janitor) { j.initialDelay = d }
}

func WithClock(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(j *Janitor) { j.logger = l }
}

func New(store Store, opts ...Option) *Janitor {
	j := &Janitor{
		store:        store,
		pendingTTL:   24 * time.Hour,
		schedule:     "@every 1h",
		initialDelay: 5 * time.Minute,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RunOnce performs a single cleanup pass. Every step runs even if an earlier
// one fails.
func (j *Janitor) RunOnce(ctx context.Context) (Result, error) {
	now := j.now()
	var res Result
	var errs []error

	n, err := j.store.DeleteStalePending(ctx, now.Add(-j.pendingTTL))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete stale pending: %w", err))
	}
	res.StalePending = n

	n, err = j.store.DeleteExpiredInvites(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired invites: %w", err))
	}
	res.ExpiredInvites = n

	if j.pruner != nil {
		res.PrunedWindows = j.pruner.Prune(ctx)
	}
	return res, errors.Join(errs...)
}

// Run waits for the initial delay, runs one pass, and then follows the
// schedule until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(j.schedule, func() { j.pass(ctx) }); err != nil {
		return fmt.Errorf("parse housekeeping schedule %q: %w", j.schedule, err)
	}

	if j.initialDelay > 0 {
		t := time.NewTimer(j.initialDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
	j.pass(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (j *Janitor) pass(ctx context.Context) {
	res, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "housekeeping pass failed", logger.Err(err))
	}
	j.logger.InfoContext(ctx, "housekeeping pass complete",
		"stale_pending", res.StalePending,
		"expired_invites", res.ExpiredInvites,
		"pruned_windows", res.PrunedWindows,
	)
}
