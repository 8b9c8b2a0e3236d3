// Package lifecycle implements the per-user trial state machine: onboarding,
// membership events, scheduled jobs and the sweep.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trialgate/internal/platform/config"
	"trialgate/internal/platform/logger"
	"trialgate/internal/platform/metrics"
	"trialgate/internal/tamper"
	"trialgate/internal/trial/models"
	"trialgate/internal/trial/store"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/audit"
	"trialgate/pkg/requestcontext"
)

const removalMarkerTTL = time.Minute

// Config holds the lifecycle policy.
type Config struct {
	TimezoneOffsetHours    float64
	Cooldown               time.Duration
	InviteExpiry           time.Duration
	BlockedPhonePrefixes   []string
	BlockedCountries       []string
	MissingEndedAtPolicy   string
	MissingEndedAtFallback time.Duration
	TransportTimeout       time.Duration
	ReputationTimeout      time.Duration
	ReputationFailOpen     bool
	NotifyTimeout          time.Duration
	EngineActorID          int64
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Cooldown:               30 * 24 * time.Hour,
		InviteExpiry:           5 * time.Hour,
		BlockedPhonePrefixes:   []string{"+91"},
		MissingEndedAtPolicy:   config.MissingEndedAtBlock,
		MissingEndedAtFallback: 30 * 24 * time.Hour,
		TransportTimeout:       10 * time.Second,
		ReputationTimeout:      5 * time.Second,
		ReputationFailOpen:     true,
		NotifyTimeout:          2 * time.Second,
	}
}

// Service owns every lifecycle transition. All writes to trial records go through it.
type Service struct {
	cfg        Config
	store      store.Store
	limiter    Limiter
	validator  *tamper.Validator
	transport  Transport
	reputation Reputation
	identity   IdentityVerifier
	notifier   Notifier
	scheduler  JobScheduler

	locks    *userLocks
	validate *validator.Validate
	metrics  *metrics.Metrics
	auditor  *audit.Emitter
	logger   *slog.Logger
	tracer   trace.Tracer

	markerMu sync.Mutex
	removing map[models.UserID]time.Time
}

type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a *audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

func WithValidator(v *tamper.Validator) Option {
	return func(s *Service) { s.validator = v }
}

// Deps are the collaborators the engine cannot run without.
type Deps struct {
	Store      store.Store
	Limiter    Limiter
	Transport  Transport
	Reputation Reputation
	Identity   IdentityVerifier
	Notifier   Notifier
	Scheduler  JobScheduler
}

func New(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Limiter == nil:
		return nil, errors.New("limiter is required")
	case deps.Transport == nil:
		return nil, errors.New("transport is required")
	case deps.Reputation == nil:
		return nil, errors.New("reputation is required")
	case deps.Identity == nil:
		return nil, errors.New("identity verifier is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	case deps.Scheduler == nil:
		return nil, errors.New("scheduler is required")
	}
	s := &Service{
		cfg:        DefaultConfig(),
		store:      deps.Store,
		limiter:    deps.Limiter,
		transport:  deps.Transport,
		reputation: deps.Reputation,
		identity:   deps.Identity,
		notifier:   deps.Notifier,
		scheduler:  deps.Scheduler,
		locks:      newUserLocks(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     slog.Default(),
		tracer:     otel.Tracer("trialgate/lifecycle"),
		removing:   make(map[models.UserID]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = tamper.New(tamper.WithLogger(s.logger), tamper.WithMetrics(s.metrics))
	}
	return s, nil
}

// now is the engine clock: the wall clock read through the monotonic ratchet.
func (s *Service) now(ctx context.Context) time.Time {
	return s.validator.Effective(ctx).UTC()
}

func (s *Service) startSpan(ctx context.Context, name string, userID models.UserID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "lifecycle."+name)
	if userID != 0 {
		span.SetAttributes(userIDAttr(userID))
	}
	return ctx, span
}

func userIDAttr(id models.UserID) attribute.KeyValue {
	return attribute.Int64("trial.user_id", int64(id))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) transition(ctx context.Context, userID models.UserID, to models.State) {
	s.metrics.IncrementTransition(to.String())
	s.logger.InfoContext(ctx, "lifecycle transition", "user_id", userID.String(), "state", to.String())
}

// reject counts and returns a coded error.
func (s *Service) reject(code dErrors.Code, msg string) error {
	s.metrics.IncrementRejected(string(code))
	return dErrors.New(code, msg)
}

func (s *Service) emit(ctx context.Context, userID models.UserID, action audit.Action, reason string) {
	s.auditor.Emit(ctx, audit.Event{Action: action, UserID: userID.String(), Reason: reason})
}

// notify sends a notification. Failures are logged and never fail the transition.
// Callers hold the user lock, so the send is bounded by NotifyTimeout.
func (s *Service) notify(ctx context.Context, userID models.UserID, tmpl models.Template, data map[string]string, dedupeKey string) {
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Template:  tmpl,
		Data:      data,
		DedupeKey: dedupeKey,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout())
	defer cancel()
	if err := s.notifier.Notify(nctx, n); err != nil {
		s.metrics.IncrementNotification(string(tmpl), "error")
		s.logger.WarnContext(ctx, "notification failed",
			"user_id", userID.String(),
			"template", string(tmpl),
			logger.Err(err),
		)
		return
	}
	s.metrics.IncrementNotification(string(tmpl), "sent")
}

func (s *Service) notifyTimeout() time.Duration {
	if s.cfg.NotifyTimeout > 0 {
		return s.cfg.NotifyTimeout
	}
	return DefaultConfig().NotifyTimeout
}

// markRemoval records that the engine is about to remove userID, so the
// resulting leave event is not treated as a user leave.
func (s *Service) markRemoval(userID models.UserID, now time.Time) {
	s.markerMu.Lock()
	defer s.markerMu.Unlock()
	s.removing[userID] = now.Add(removalMarkerTTL)
	for id, until := range s.removing {
		if now.After(until) {
			delete(s.removing, id)
		}
	}
}

func (s *Service) consumeRemoval(userID models.UserID, now time.Time) bool {
	s.markerMu.Lock()
	defer s.markerMu.Unlock()
	until, ok := s.removing[userID]
	if !ok {
		return false
	}
	delete(s.removing, userID)
	return !now.After(until)
}

// removeMember asks the transport to remove userID. It reports success; the
// failure is logged and counted, never returned.
func (s *Service) removeMember(ctx context.Context, userID models.UserID, now time.Time) bool {
	s.markRemoval(userID, now)
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TransportTimeout)
	defer cancel()
	if err := s.transport.RemoveMember(tctx, userID); err != nil {
		s.metrics.IncrementRemovalFailure()
		s.logger.ErrorContext(ctx, "member removal failed", "user_id", userID.String(), logger.Err(err))
		s.emit(ctx, userID, audit.ActionRemovalFailed, err.Error())
		return false
	}
	return true
}

func (s *Service) cancelJobs(userID models.UserID) {
	for _, id := range models.AllJobIDs(userID) {
		s.scheduler.Cancel(id)
	}
}

func (s *Service) isBanned(ctx context.Context, userID models.UserID) (bool, error) {
	_, err := s.store.GetBan(ctx, userID)
	if err == nil {
		return true, nil
	}
	if store.IsNotFound(err) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ban")
}

func (s *Service) activeTrial(ctx context.Context, userID models.UserID) (*models.ActiveTrial, error) {
	t, err := s.store.GetActive(ctx, userID)
	if err == nil {
		return t, nil
	}
	if store.IsNotFound(err) {
		return nil, nil
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active trial")
}

func (s *Service) pending(ctx context.Context, userID models.UserID) (*models.PendingVerification, error) {
	p, err := s.store.GetPending(ctx, userID)
	if err == nil {
		return p, nil
	}
	if store.IsNotFound(err) {
		return nil, nil
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending verification")
}

func (s *Service) invite(ctx context.Context, userID models.UserID) (*models.Invite, error) {
	inv, err := s.store.GetInvite(ctx, userID)
	if err == nil {
		return inv, nil
	}
	if store.IsNotFound(err) {
		return nil, nil
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invite")
}

func hasBlockedPrefix(phone string, prefixes []string) bool {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(phone, p) {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
