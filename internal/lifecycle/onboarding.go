package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"trialgate/internal/platform/logger"
	rlmodels "trialgate/internal/ratelimit/models"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/audit"
	"trialgate/pkg/platform/privacy"
)

// Step1Request is the first verification form.
type Step1Request struct {
	UserID         models.UserID `validate:"required,gt=0"`
	IP             string        `validate:"required,ip"`
	DisplayName    string        `validate:"required,min=1,max=64"`
	Country        string        `validate:"required,iso3166_1_alpha2"`
	Email          string        `validate:"omitempty,email,max=254"`
	MarketingOptIn bool
}

// PhoneRequest carries the shared phone number and its identity token.
type PhoneRequest struct {
	UserID models.UserID `validate:"required,gt=0"`
	Phone  string
	Token  string `validate:"required"`
}

// Start opens verification for a user who has no pending, active or cooling-down trial.
func (s *Service) Start(ctx context.Context, userID models.UserID) (_ *Status, err error) {
	ctx, span := s.startSpan(ctx, "Start", userID)
	defer func() { endSpan(span, err) }()

	if userID <= 0 {
		return nil, s.reject(dErrors.CodeValidation, "user id is required")
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	now := s.now(ctx)

	if err := s.ensureOpen(ctx, userID); err != nil {
		return nil, err
	}
	cd, err := s.cooldownFor(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if cd.Blocked {
		s.transition(ctx, userID, models.StateCooldownBlocked)
		s.emit(ctx, userID, audit.ActionCooldownBlocked, string(cd.Reason))
		s.notify(ctx, userID, models.TemplateCooldownBlocked, cd.data(), "")
		return nil, s.reject(dErrors.CodeCooldown, "a trial was used recently")
	}

	existing, err := s.pending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Terminal() {
			return nil, s.reject(dErrors.CodeBlocked, "verification is blocked")
		}
		return s.status(ctx, userID, now)
	}

	if _, err := s.store.UpdatePending(ctx, userID, func(p *models.PendingVerification) error {
		p.State = models.StateNew
		p.CreatedAt = now
		p.UpdatedAt = now
		return nil
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start verification")
	}
	s.transition(ctx, userID, models.StateNew)
	s.notify(ctx, userID, models.TemplateOnboarding, nil, "")
	return s.status(ctx, userID, now)
}

// SubmitStep1 checks the rate limits, the form and the client IP, then marks step 1 passed.
func (s *Service) SubmitStep1(ctx context.Context, req Step1Request) (_ *Status, err error) {
	ctx, span := s.startSpan(ctx, "SubmitStep1", req.UserID)
	defer func() { endSpan(span, err) }()

	if err := s.checkLimit(ctx, rlmodels.PolicyInitialView, req.IP); err != nil {
		return nil, err
	}
	if req.UserID > 0 {
		if err := s.checkLimit(ctx, rlmodels.PolicyVerifyStep1, req.UserID.String()); err != nil {
			return nil, err
		}
	}
	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, s.reject(dErrors.CodeValidation, validationMessage(err))
	}

	// The lookup runs before the user lock so a slow provider cannot stall other events for this user.
	rep, manualReview, err := s.lookupReputation(ctx, req.IP)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()
	now := s.now(ctx)

	if err := s.ensureOpen(ctx, req.UserID); err != nil {
		return nil, err
	}
	p, err := s.pending(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	switch {
	case p == nil:
		return nil, s.reject(dErrors.CodeIllegalTransition, "verification has not been started")
	case p.Terminal():
		return nil, s.reject(dErrors.CodeBlocked, "verification is blocked")
	case p.State == models.StateStep1Passed || p.State == models.StatePhoneVerified:
		return s.status(ctx, req.UserID, now)
	case p.State != models.StateNew:
		return nil, s.reject(dErrors.CodeIllegalTransition, fmt.Sprintf("cannot submit step 1 in state %s", p.State))
	}

	blockReason := ""
	switch {
	case rep != nil && rep.Anonymizing():
		blockReason = "anonymizing_network"
	case rep != nil && rep.CountryCode != "" && containsFold(s.cfg.BlockedCountries, rep.CountryCode):
		blockReason = "blocked_country"
	case containsFold(s.cfg.BlockedCountries, req.Country):
		blockReason = "blocked_country"
	}

	_, err = s.store.UpdatePending(ctx, req.UserID, func(p *models.PendingVerification) error {
		p.RecordAttempt(now)
		if blockReason != "" {
			return nil
		}
		p.DisplayName = req.DisplayName
		p.Country = req.Country
		p.Email = req.Email
		p.SourceIP = privacy.AnonymizeIP(req.IP)
		p.MarketingOptIn = req.MarketingOptIn
		p.Step1Passed = true
		p.ManualReview = p.ManualReview || manualReview
		p.State = models.StateStep1Passed
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification")
	}
	if blockReason != "" {
		s.emit(ctx, req.UserID, audit.ActionReputationBlocked, blockReason)
		return nil, s.reject(dErrors.CodeBlocked, "access from this network or region is not allowed")
	}
	s.transition(ctx, req.UserID, models.StateStep1Passed)
	s.emit(ctx, req.UserID, audit.ActionStep1Passed, "")
	return s.status(ctx, req.UserID, now)
}

// SubmitPhone verifies the identity token and the phone country.
func (s *Service) SubmitPhone(ctx context.Context, req PhoneRequest) (_ *Status, err error) {
	ctx, span := s.startSpan(ctx, "SubmitPhone", req.UserID)
	defer func() { endSpan(span, err) }()

	if err := s.validate.Struct(req); err != nil {
		return nil, s.reject(dErrors.CodeValidation, validationMessage(err))
	}
	if err := s.checkLimit(ctx, rlmodels.PolicyVerifyPhone, req.UserID.String()); err != nil {
		return nil, err
	}
	claims, err := s.identity.Verify(ctx, req.Token)
	if err != nil {
		s.metrics.IncrementRejected(string(dErrors.CodeUnauthorized))
		var de *dErrors.Error
		if !errors.As(err, &de) {
			err = dErrors.Wrap(err, dErrors.CodeUnauthorized, "identity token is invalid")
		}
		return nil, err
	}
	if claims.UserID != req.UserID {
		return nil, s.reject(dErrors.CodeUnauthorized, "identity token belongs to another user")
	}
	phone := claims.Phone
	if phone == "" {
		phone = req.Phone
	}
	phone, ok := normalizePhone(phone)
	if !ok {
		return nil, s.reject(dErrors.CodeValidation, "phone number is invalid")
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()
	now := s.now(ctx)

	if err := s.ensureOpen(ctx, req.UserID); err != nil {
		return nil, err
	}
	p, err := s.pending(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	switch {
	case p == nil:
		return nil, s.reject(dErrors.CodeIllegalTransition, "verification has not been started")
	case p.Terminal():
		return nil, s.reject(dErrors.CodeBlocked, "verification is blocked")
	case p.State != models.StateStep1Passed && p.State != models.StatePhoneVerified:
		return nil, s.reject(dErrors.CodeIllegalTransition, fmt.Sprintf("cannot verify phone in state %s", p.State))
	}

	blocked := hasBlockedPrefix(phone, s.cfg.BlockedPhonePrefixes)
	_, err = s.store.UpdatePending(ctx, req.UserID, func(p *models.PendingVerification) error {
		p.RecordAttempt(now)
		p.Phone = privacy.MaskPhone(phone)
		if blocked {
			p.State = models.StateCooldownBlocked
			p.BlockReason = models.BlockReasonPhone
			return nil
		}
		p.State = models.StatePhoneVerified
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification")
	}
	if blocked {
		s.transition(ctx, req.UserID, models.StateCooldownBlocked)
		s.emit(ctx, req.UserID, audit.ActionPhoneBlocked, privacy.HashPhone(phone))
		s.notify(ctx, req.UserID, models.TemplatePhoneBlocked, nil, "")
		return nil, s.reject(dErrors.CodeBlocked, "phone numbers from this region are not eligible")
	}
	s.transition(ctx, req.UserID, models.StatePhoneVerified)
	s.emit(ctx, req.UserID, audit.ActionPhoneVerified, "")
	return s.status(ctx, req.UserID, now)
}

// RequestInvite returns the live invite or creates a new one through the transport.
func (s *Service) RequestInvite(ctx context.Context, userID models.UserID) (_ *models.Invite, err error) {
	ctx, span := s.startSpan(ctx, "RequestInvite", userID)
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()
	now := s.now(ctx)

	if err := s.ensureOpen(ctx, userID); err != nil {
		return nil, err
	}
	p, err := s.pending(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case p == nil:
		return nil, s.reject(dErrors.CodeIllegalTransition, "verification has not been started")
	case p.Terminal():
		return nil, s.reject(dErrors.CodeBlocked, "verification is blocked")
	case p.State != models.StatePhoneVerified:
		return nil, s.reject(dErrors.CodeIllegalTransition, fmt.Sprintf("cannot request invite in state %s", p.State))
	}
	cd, err := s.cooldownFor(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if cd.Blocked {
		return nil, s.reject(dErrors.CodeCooldown, "a trial was used recently")
	}

	existing, err := s.invite(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing.Live(now) {
		return existing, nil
	}

	expiresAt := now.Add(s.cfg.InviteExpiry)
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TransportTimeout)
	defer cancel()
	link, err := s.transport.CreateInvite(tctx, userID, expiresAt)
	if err != nil {
		s.metrics.IncrementRejected(string(dErrors.CodeExternalUnavailable))
		return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "invite link could not be created")
	}
	inv := &models.Invite{UserID: userID, Link: link, CreatedAt: now, ExpiresAt: expiresAt}
	if err := s.store.SaveInvite(ctx, inv); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save invite")
	}
	s.transition(ctx, userID, models.StateInviteIssued)
	s.emit(ctx, userID, audit.ActionInviteIssued, "")
	s.notify(ctx, userID, models.TemplateInviteIssued, map[string]string{
		"invite_link": link,
		"expires_at":  expiresAt.Format(time.RFC3339),
	}, "")
	return inv, nil
}

// ensureOpen rejects users who are banned or already in a trial.
func (s *Service) ensureOpen(ctx context.Context, userID models.UserID) error {
	banned, err := s.isBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return s.reject(dErrors.CodeIllegalTransition, "user is banned")
	}
	active, err := s.activeTrial(ctx, userID)
	if err != nil {
		return err
	}
	if active != nil {
		return s.reject(dErrors.CodeIllegalTransition, "trial is already active")
	}
	return nil
}

func (s *Service) checkLimit(ctx context.Context, policy rlmodels.Policy, subject string) error {
	res, err := s.limiter.Check(ctx, policy, subject)
	if err != nil {
		return err
	}
	if !res.Allowed {
		s.metrics.IncrementRejected(string(dErrors.CodeRateLimited))
		return dErrors.Wrap(&RetryAfterError{RetryAfter: time.Duration(res.RetryAfter) * time.Second}, dErrors.CodeRateLimited, "too many requests")
	}
	return nil
}

// lookupReputation returns the reputation and whether the record needs manual
// review because the provider was unavailable and the engine failed open.
func (s *Service) lookupReputation(ctx context.Context, ip string) (*models.IPReputation, bool, error) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ReputationTimeout)
	defer cancel()
	rep, err := s.reputation.Lookup(rctx, ip)
	if err == nil {
		return rep, false, nil
	}
	if s.cfg.ReputationFailOpen {
		s.logger.WarnContext(ctx, "reputation lookup failed, allowing for manual review",
			"ip", privacy.AnonymizeIP(ip),
			logger.Err(err),
		)
		return nil, true, nil
	}
	return nil, false, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "reputation service unavailable")
}

// RetryAfterError carries the wait hint of a rate-limited call.
type RetryAfterError struct {
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s", e.RetryAfter)
}

// normalizePhone strips formatting and ensures a leading '+'.
func normalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	return "+" + digits, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Sprintf("invalid %s", strings.ToLower(verrs[0].Field()))
	}
	return "invalid request"
}
