// Package httptransport exposes the lifecycle engine over HTTP: the public
// form-collection API and the secret-guarded internal API.
package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trialgate/internal/lifecycle"
	"trialgate/internal/platform/logger"
	rlmodels "trialgate/internal/ratelimit/models"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/httputil"
	"trialgate/pkg/platform/middleware/device"
	"trialgate/pkg/platform/middleware/metadata"
	"trialgate/pkg/platform/middleware/request"
	"trialgate/pkg/platform/middleware/requesttime"
	"trialgate/pkg/platform/middleware/secret"
	"trialgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service is the lifecycle surface the handlers drive.
type Service interface {
	Start(ctx context.Context, userID models.UserID) (*lifecycle.Status, error)
	SubmitStep1(ctx context.Context, req lifecycle.Step1Request) (*lifecycle.Status, error)
	SubmitPhone(ctx context.Context, req lifecycle.PhoneRequest) (*lifecycle.Status, error)
	RequestInvite(ctx context.Context, userID models.UserID) (*models.Invite, error)
	GetStatus(ctx context.Context, userID models.UserID) (*lifecycle.Status, error)
	HandleMembership(ctx context.Context, ev lifecycle.MembershipEvent) error
	Ban(ctx context.Context, userID models.UserID, reason string, actorID string) error
	Unban(ctx context.Context, userID models.UserID, actorID string) error
}

// Limiter guards the public status endpoint.
type Limiter interface {
	Check(ctx context.Context, policy rlmodels.Policy, subject string) (*rlmodels.RateLimitResult, error)
}

// Handler serves every route of the engine.
type Handler struct {
	service   Service
	limiter   Limiter
	auth      Authenticator
	apiSecret string
	proxies   []netip.Prefix
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	timeout   time.Duration
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithGatherer selects the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithTrustedProxies lists the proxies whose forwarding headers are believed.
func WithTrustedProxies(p []netip.Prefix) Option {
	return func(h *Handler) { h.proxies = p }
}

func New(service Service, limiter Limiter, auth Authenticator, apiSecret string, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		limiter:   limiter,
		auth:      auth,
		apiSecret: apiSecret,
		gatherer:  prometheus.DefaultGatherer,
		logger:    slog.Default(),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.NewResolver(h.proxies).ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(h.timeout))

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(h.requireUser)
		r.Get("/status", h.handlePublicStatus)
		r.Get("/status/{userID}", h.handlePublicStatus)
		r.Group(func(r chi.Router) {
			r.Use(device.RejectBots(h.logger))
			r.Post("/start", h.handleStart)
			r.Post("/verify/step1", h.handleStep1)
			r.Post("/verify/phone", h.handlePhone)
			r.Post("/invite", h.handleInvite)
		})
	})

	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(secret.RequireSharedSecret(h.apiSecret, h.logger))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/status/{userID}", h.handleInternalStatus)
		r.Post("/membership", h.handleMembership)
		r.Post("/bans", h.handleBan)
		r.Delete("/bans/{userID}", h.handleUnban)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError renders err and logs anything that is not a client mistake.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var hint *lifecycle.RetryAfterError
	if dErrors.HasCode(err, dErrors.CodeRateLimited) {
		retry := 0
		if errors.As(err, &hint) {
			retry = int(hint.RetryAfter.Round(time.Second) / time.Second)
		}
		httputil.WriteRateLimited(w, r, retry)
		return
	}
	if status := dErrors.HTTPStatus(dErrors.CodeOf(err)); status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"elapsed", time.Since(requestcontext.ReceivedAt(ctx)),
			logger.Err(err),
		)
	}
	httputil.WriteError(w, r, err)
}

func userIDParam(r *http.Request) (models.UserID, error) {
	id, ok := models.ParseUserID(chi.URLParam(r, "userID"))
	if !ok {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	return id, nil
}
