// Package notify publishes outbound notification requests. Message rendering
// and delivery belong to whatever consumes the published requests.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v2"
	"golang.org/x/time/rate"

	"trialgate/internal/platform/logger"
	"trialgate/internal/platform/metrics"
	"trialgate/internal/trial/models"
	"trialgate/pkg/requestcontext"
)

// Publisher writes one notification request to a backend.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
	Close() error
}

const defaultDedupeWindow = 24 * time.Hour

// Dispatcher throttles outbound requests and drops repeats that share a
// dedupe key within the dedupe window.
type Dispatcher struct {
	publisher Publisher
	limiter   *rate.Limiter
	seen      *ttlcache.Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Dispatcher)

// WithRate caps publishing at perSecond with the given burst.
func WithRate(perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		if perSecond > 0 && burst > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithDedupeWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		if window > 0 {
			_ = d.seen.SetTTL(window)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(publisher Publisher, opts ...Option) *Dispatcher {
	seen := ttlcache.NewCache()
	_ = seen.SetTTL(defaultDedupeWindow)
	seen.SkipTTLExtensionOnHit(true)
	d := &Dispatcher{
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		seen:      seen,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify publishes n, filling in its id and creation time when unset.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = requestcontext.Now(ctx)
	}
	if n.DedupeKey != "" {
		if _, err := d.seen.Get(n.DedupeKey); err == nil {
			d.metrics.IncrementNotification(string(n.Template), "duplicate")
			d.logger.DebugContext(ctx, "notification deduplicated",
				"template", n.Template,
				"dedupe_key", n.DedupeKey,
			)
			return nil
		}
	}
	if err := d.limiter.Wait(ctx); err != nil {
		d.metrics.IncrementNotification(string(n.Template), "throttled")
		return fmt.Errorf("wait for notify slot: %w", err)
	}
	if err := d.publisher.Publish(ctx, n); err != nil {
		d.metrics.IncrementNotification(string(n.Template), "error")
		d.logger.ErrorContext(ctx, "failed to publish notification",
			"template", n.Template,
			"user_id", n.UserID.String(),
			logger.Err(err),
		)
		return fmt.Errorf("publish notification: %w", err)
	}
	if n.DedupeKey != "" {
		_ = d.seen.Set(n.DedupeKey, n.ID)
	}
	d.metrics.IncrementNotification(string(n.Template), "ok")
	return nil
}

// Close releases the dedupe cache and the publisher.
func (d *Dispatcher) Close() error {
	_ = d.seen.Close()
	return d.publisher.Close()
}
