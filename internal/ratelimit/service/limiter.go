// Package service implements the policy-driven rate limiter used by the lifecycle engine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"trialgate/internal/platform/logger"
	"trialgate/internal/ratelimit/metrics"
	"trialgate/internal/ratelimit/models"
	"trialgate/internal/ratelimit/ports"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/circuit"
	"trialgate/pkg/platform/privacy"
)

// Limiter enforces fixed-window policies over a primary bucket store.
//
// When the primary store errors, the policy's fail mode decides the call. Once
// the circuit breaker opens, decisions come from the in-memory fallback until
// the primary recovers.
type Limiter struct {
	primary  ports.BucketStore
	fallback ports.BucketStore
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithFallback serves decisions from store while the breaker is open.
func WithFallback(store ports.BucketStore, breaker *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.fallback = store
		l.breaker = breaker
	}
}

func New(primary ports.BucketStore, opts ...Option) (*Limiter, error) {
	if primary == nil {
		return nil, errors.New("rate limit store is required")
	}
	l := &Limiter{
		primary: primary,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback != nil && l.breaker == nil {
		l.breaker = circuit.New("ratelimit")
	}
	return l, nil
}

// Check applies policy to subject (an IP or a user id).
func (l *Limiter) Check(ctx context.Context, policy models.Policy, subject string) (*models.RateLimitResult, error) {
	return l.Allow(ctx, models.NewKey(policy.Scope, subject, policy.Action), policy.Action, policy.Limit, policy.Window, policy.FailMode)
}

// Allow increments the counter for (subjectKey, action) and reports whether the
// post-increment count is within limit. A store failure returns a degraded
// allow under FailOpen and an ExternalUnavailable error under FailClosed.
func (l *Limiter) Allow(ctx context.Context, subjectKey string, action models.Action, limit int, window time.Duration, mode models.FailMode) (*models.RateLimitResult, error) {
	res, err := l.allow(ctx, subjectKey, limit, window)
	if err != nil {
		l.metrics.IncrementStoreError(string(action), mode.String())
		l.logger.ErrorContext(ctx, "rate limit store unavailable",
			"action", action,
			"fail_mode", mode.String(),
			logger.Err(err),
		)
		if mode == models.FailOpen {
			return &models.RateLimitResult{Allowed: true, Limit: limit, Degraded: true}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "rate limit store unavailable")
	}

	l.metrics.IncrementDecision(string(action), res.Allowed)
	if !res.Allowed {
		l.logger.InfoContext(ctx, "rate limit exceeded",
			"action", action,
			"subject", redactSubject(subjectKey),
			"retry_after", res.RetryAfter,
		)
	}
	return res, nil
}

func (l *Limiter) allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	res, err := l.primary.Allow(ctx, key, limit, window)
	if l.breaker == nil {
		return res, err
	}
	if err != nil {
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.metrics.SetFallbackActive(true)
			l.logger.WarnContext(ctx, "rate limit circuit opened, using in-memory fallback", logger.Err(err))
		}
		if useFallback {
			fb, fbErr := l.fallback.Allow(ctx, key, limit, window)
			if fb != nil {
				fb.Degraded = true
			}
			return fb, fbErr
		}
		return nil, err
	}
	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.metrics.SetFallbackActive(false)
		l.logger.InfoContext(ctx, "rate limit circuit closed, primary store recovered")
	}
	if !usePrimary {
		fb, fbErr := l.fallback.Allow(ctx, key, limit, window)
		if fb != nil {
			fb.Degraded = true
		}
		return fb, fbErr
	}
	return res, nil
}

// Prune drops rolled-over windows from in-memory stores.
func (l *Limiter) Prune(ctx context.Context) int {
	removed := 0
	for _, s := range []ports.BucketStore{l.primary, l.fallback} {
		if p, ok := s.(ports.Pruner); ok {
			removed += p.Prune(ctx)
		}
	}
	return removed
}

// redactSubject anonymizes IP subjects in logs; user ids are kept.
func redactSubject(key string) string {
	const ipPrefix = "rl:" + string(models.ScopeIP) + ":"
	if rest, ok := strings.CutPrefix(key, ipPrefix); ok {
		return "ip:" + privacy.Fingerprint(rest)
	}
	return key
}
