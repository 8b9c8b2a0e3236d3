package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trialgate/internal/lifecycle/mocks"
	"trialgate/internal/platform/config"
	rlmodels "trialgate/internal/ratelimit/models"
	"trialgate/internal/tamper"
	"trialgate/internal/trial/models"
	"trialgate/internal/trial/store"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/requestcontext"
)

const userID models.UserID = 42

var (
	monday10   = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	saturday09 = time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
)

type LifecycleSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	store      *store.InMemoryStore
	limiter    *mocks.MockLimiter
	transport  *mocks.MockTransport
	reputation *mocks.MockReputation
	identity   *mocks.MockIdentityVerifier
	notifier   *mocks.MockNotifier
	scheduler  *mocks.MockJobScheduler
	signer     *tamper.Signer
	logs       *bytes.Buffer
	svc        *Service

	scheduled map[string]models.Job
	cancelled []string
	notes     []models.Notification
	deadlines []time.Time
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewInMemoryStore()
	s.limiter = mocks.NewMockLimiter(s.ctrl)
	s.transport = mocks.NewMockTransport(s.ctrl)
	s.reputation = mocks.NewMockReputation(s.ctrl)
	s.identity = mocks.NewMockIdentityVerifier(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.scheduler = mocks.NewMockJobScheduler(s.ctrl)
	s.logs = &bytes.Buffer{}
	s.scheduled = map[string]models.Job{}
	s.cancelled = nil
	s.notes = nil
	s.deadlines = nil

	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, n models.Notification) error {
		s.notes = append(s.notes, n)
		deadline, _ := ctx.Deadline()
		s.deadlines = append(s.deadlines, deadline)
		return nil
	}).AnyTimes()
	s.scheduler.EXPECT().Schedule(gomock.Any()).Do(func(job models.Job) {
		s.scheduled[job.ID] = job
	}).AnyTimes()
	s.scheduler.EXPECT().Cancel(gomock.Any()).Do(func(id string) {
		delete(s.scheduled, id)
		s.cancelled = append(s.cancelled, id)
	}).AnyTimes()

	var err error
	s.signer, err = tamper.NewSigner([]byte(strings.Repeat("s", 32)))
	s.Require().NoError(err)
	s.svc = s.newService(DefaultConfig())
}

func (s *LifecycleSuite) newService(cfg Config) *Service {
	log := slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg.EngineActorID = 999
	svc, err := New(Deps{
		Store:      s.store,
		Limiter:    s.limiter,
		Transport:  s.transport,
		Reputation: s.reputation,
		Identity:   s.identity,
		Notifier:   s.notifier,
		Scheduler:  s.scheduler,
	},
		WithConfig(cfg),
		WithLogger(log),
		WithValidator(tamper.New(tamper.WithSigner(s.signer), tamper.WithLogger(log))),
	)
	s.Require().NoError(err)
	return svc
}

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *LifecycleSuite) allowLimits() {
	s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&rlmodels.RateLimitResult{Allowed: true}, nil).AnyTimes()
}

func (s *LifecycleSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func (s *LifecycleSuite) lastNote() models.Notification {
	s.Require().NotEmpty(s.notes)
	return s.notes[len(s.notes)-1]
}

func (s *LifecycleSuite) seedPending(state models.State, now time.Time) {
	_, err := s.store.UpdatePending(context.Background(), userID, func(p *models.PendingVerification) error {
		p.State = state
		p.Step1Passed = state != models.StateNew
		p.CreatedAt, p.UpdatedAt = now, now
		return nil
	})
	s.Require().NoError(err)
}

func (s *LifecycleSuite) seedInvite(now time.Time) {
	s.seedPending(models.StatePhoneVerified, now)
	s.Require().NoError(s.store.SaveInvite(context.Background(), &models.Invite{
		UserID: userID, Link: "https://t.me/+invite", CreatedAt: now, ExpiresAt: now.Add(5 * time.Hour),
	}))
}

func (s *LifecycleSuite) join(now time.Time) *models.ActiveTrial {
	s.seedInvite(now.Add(-time.Hour))
	s.Require().NoError(s.svc.HandleMembership(at(now), MembershipEvent{UserID: userID, Kind: MembershipJoin}))
	trial, err := s.store.GetActive(context.Background(), userID)
	s.Require().NoError(err)
	return trial
}

func (s *LifecycleSuite) usedHistory() []*models.UsedTrial {
	history, err := s.store.ListUsed(context.Background(), userID)
	s.Require().NoError(err)
	return history
}

// -----------------------------------------------------------------------------
// Start
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) TestStart() {
	s.Run("creates a pending verification", func() {
		st, err := s.svc.Start(at(monday10), userID)
		s.Require().NoError(err)
		s.Equal(models.StateNew, st.State)
		s.Equal(models.TemplateOnboarding, s.lastNote().Template)
	})

	s.Run("repeat start is idempotent", func() {
		notes := len(s.notes)
		st, err := s.svc.Start(at(monday10.Add(time.Minute)), userID)
		s.Require().NoError(err)
		s.Equal(models.StateNew, st.State)
		s.Len(s.notes, notes)
	})
}

func (s *LifecycleSuite) TestStartWithinCooldown() {
	ended := monday10.Add(-10 * 24 * time.Hour)
	s.Require().NoError(s.store.AppendUsed(context.Background(), &models.UsedTrial{
		UserID: userID, EndedReason: models.EndedExpired, EndedAt: ended, CreatedAt: ended,
	}))

	_, err := s.svc.Start(at(monday10), userID)
	s.requireCode(err, dErrors.CodeCooldown)

	note := s.lastNote()
	s.Equal(models.TemplateCooldownBlocked, note.Template)
	s.Equal(ended.Add(30*24*time.Hour).Format(time.RFC3339), note.Data["cooldown_ends_at"])

	_, err = s.store.GetPending(context.Background(), userID)
	s.True(store.IsNotFound(err))
}

func (s *LifecycleSuite) TestStartAfterCooldown() {
	ended := monday10.Add(-31 * 24 * time.Hour)
	s.Require().NoError(s.store.AppendUsed(context.Background(), &models.UsedTrial{
		UserID: userID, EndedReason: models.EndedLeftEarly, EndedAt: ended, CreatedAt: ended,
	}))
	st, err := s.svc.Start(at(monday10), userID)
	s.Require().NoError(err)
	s.Equal(models.StateNew, st.State)
}

func (s *LifecycleSuite) TestRepeatJoinRowsDoNotExtendCooldown() {
	old := monday10.Add(-31 * 24 * time.Hour)
	s.Require().NoError(s.store.AppendUsed(context.Background(), &models.UsedTrial{
		UserID: userID, EndedReason: models.EndedExpired, EndedAt: old, CreatedAt: old,
	}))
	recent := monday10.Add(-24 * time.Hour)
	s.Require().NoError(s.store.AppendUsed(context.Background(), &models.UsedTrial{
		UserID: userID, EndedReason: models.EndedBlockedRepeat, EndedAt: recent, CreatedAt: recent,
	}))
	_, err := s.svc.Start(at(monday10), userID)
	s.NoError(err)
}

func (s *LifecycleSuite) TestMissingEndedAtPolicy() {
	created := monday10.Add(-40 * 24 * time.Hour)
	s.Require().NoError(s.store.AppendUsed(context.Background(), &models.UsedTrial{
		UserID: userID, EndedReason: models.EndedExpired, CreatedAt: created,
	}))

	s.Run("block treats the record as always blocking", func() {
		_, err := s.svc.Start(at(monday10), userID)
		s.requireCode(err, dErrors.CodeCooldown)
	})

	s.Run("fallback blocks until created_at plus the fallback", func() {
		cfg := DefaultConfig()
		cfg.MissingEndedAtPolicy = config.MissingEndedAtFallback
		cfg.MissingEndedAtFallback = 30 * 24 * time.Hour
		svc := s.newService(cfg)
		st, err := svc.Start(at(monday10), userID)
		s.Require().NoError(err)
		s.Equal(models.StateNew, st.State)
	})
}

// -----------------------------------------------------------------------------
// Step 1
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) step1() Step1Request {
	return Step1Request{
		UserID:      userID,
		IP:          "203.0.113.77",
		DisplayName: "Ada",
		Country:     "de",
		Email:       "ada@example.com",
	}
}

func (s *LifecycleSuite) TestSubmitStep1() {
	s.allowLimits()
	s.seedPending(models.StateNew, monday10)
	s.reputation.EXPECT().Lookup(gomock.Any(), "203.0.113.77").
		Return(&models.IPReputation{IP: "203.0.113.77", CountryCode: "DE"}, nil)

	st, err := s.svc.SubmitStep1(at(monday10), s.step1())
	s.Require().NoError(err)
	s.Equal(models.StateStep1Passed, st.State)

	p, err := s.store.GetPending(context.Background(), userID)
	s.Require().NoError(err)
	s.True(p.Step1Passed)
	s.Equal("DE", p.Country)
	s.Equal("203.0.113.0", p.SourceIP)
	s.False(p.ManualReview)
	s.Len(p.AttemptTimestamps, 1)
}

func (s *LifecycleSuite) TestSubmitStep1RateLimits() {
	s.seedPending(models.StateNew, monday10)
	s.reputation.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(&models.IPReputation{}, nil).AnyTimes()

	gomock.InOrder(
		s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyInitialView, "203.0.113.77").
			Return(&rlmodels.RateLimitResult{Allowed: true}, nil).Times(5),
		s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyInitialView, "203.0.113.77").
			Return(&rlmodels.RateLimitResult{Allowed: false, RetryAfter: 2400}, nil),
	)
	s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyVerifyStep1, userID.String()).
		Return(&rlmodels.RateLimitResult{Allowed: true}, nil).Times(5)

	for i := range 5 {
		_, err := s.svc.SubmitStep1(at(monday10.Add(time.Duration(i)*time.Minute)), s.step1())
		s.Require().NoError(err)
	}
	_, err := s.svc.SubmitStep1(at(monday10.Add(6*time.Minute)), s.step1())
	s.requireCode(err, dErrors.CodeRateLimited)
	var hint *RetryAfterError
	s.Require().ErrorAs(err, &hint)
	s.Equal(40*time.Minute, hint.RetryAfter)
}

func (s *LifecycleSuite) TestSubmitStep1LimiterUnavailable() {
	s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyInitialView, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeExternalUnavailable, "rate limit store unavailable"))
	_, err := s.svc.SubmitStep1(at(monday10), s.step1())
	s.requireCode(err, dErrors.CodeExternalUnavailable)
}

func (s *LifecycleSuite) TestSubmitStep1Rejections() {
	s.allowLimits()
	s.seedPending(models.StateNew, monday10)

	s.Run("invalid form", func() {
		req := s.step1()
		req.Country = "Germany"
		_, err := s.svc.SubmitStep1(at(monday10), req)
		s.requireCode(err, dErrors.CodeValidation)
		s.Contains(err.Error(), "country")
	})

	s.Run("vpn address", func() {
		s.reputation.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(&models.IPReputation{IsVPN: true}, nil)
		_, err := s.svc.SubmitStep1(at(monday10), s.step1())
		s.requireCode(err, dErrors.CodeBlocked)

		p, err := s.store.GetPending(context.Background(), userID)
		s.Require().NoError(err)
		s.Equal(models.StateNew, p.State)
		s.Len(p.AttemptTimestamps, 1)
	})

	s.Run("blocked country", func() {
		cfg := DefaultConfig()
		cfg.BlockedCountries = []string{"IN"}
		svc := s.newService(cfg)
		s.reputation.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(&models.IPReputation{CountryCode: "in"}, nil)
		_, err := svc.SubmitStep1(at(monday10), s.step1())
		s.requireCode(err, dErrors.CodeBlocked)
	})

	s.Run("not started", func() {
		s.Require().NoError(s.store.DeletePending(context.Background(), userID))
		s.reputation.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(&models.IPReputation{}, nil)
		_, err := s.svc.SubmitStep1(at(monday10), s.step1())
		s.requireCode(err, dErrors.CodeIllegalTransition)
	})
}

func (s *LifecycleSuite) TestSubmitStep1ReputationFailure() {
	s.allowLimits()
	s.seedPending(models.StateNew, monday10)

	s.Run("fails open and flags manual review", func() {
		s.reputation.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
		st, err := s.svc.SubmitStep1(at(monday10), s.step1())
		s.Require().NoError(err)
		s.Equal(models.StateStep1Passed, st.State)
		s.True(st.ManualReview)
	})

	s.Run("fails closed when configured", func() {
		s.seedPending(models.StateNew, monday10)
		cfg := DefaultConfig()
		cfg.ReputationFailOpen = false
		svc := s.newService(cfg)
		s.reputation.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
		_, err := svc.SubmitStep1(at(monday10), s.step1())
		s.requireCode(err, dErrors.CodeExternalUnavailable)
	})
}

// -----------------------------------------------------------------------------
// Phone
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) TestSubmitPhone() {
	s.allowLimits()
	s.seedPending(models.StateStep1Passed, monday10)
	s.identity.EXPECT().Verify(gomock.Any(), "tok").
		Return(&models.IdentityClaims{UserID: userID, Phone: "49 151 2345678"}, nil)

	st, err := s.svc.SubmitPhone(at(monday10), PhoneRequest{UserID: userID, Token: "tok"})
	s.Require().NoError(err)
	s.Equal(models.StatePhoneVerified, st.State)

	p, err := s.store.GetPending(context.Background(), userID)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(p.Phone, "+49"))
	s.NotContains(p.Phone, "2345")
}

func (s *LifecycleSuite) TestSubmitPhoneRejections() {
	s.allowLimits()
	s.seedPending(models.StateStep1Passed, monday10)

	s.Run("token of another user", func() {
		s.identity.EXPECT().Verify(gomock.Any(), gomock.Any()).
			Return(&models.IdentityClaims{UserID: 7, Phone: "+4915112345678"}, nil)
		_, err := s.svc.SubmitPhone(at(monday10), PhoneRequest{UserID: userID, Token: "tok"})
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("invalid token", func() {
		s.identity.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, errors.New("bad signature"))
		_, err := s.svc.SubmitPhone(at(monday10), PhoneRequest{UserID: userID, Token: "tok"})
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("blocked prefix ends verification", func() {
		s.identity.EXPECT().Verify(gomock.Any(), gomock.Any()).
			Return(&models.IdentityClaims{UserID: userID, Phone: "919812345678"}, nil)
		_, err := s.svc.SubmitPhone(at(monday10), PhoneRequest{UserID: userID, Token: "tok"})
		s.requireCode(err, dErrors.CodeBlocked)
		s.Equal(models.TemplatePhoneBlocked, s.lastNote().Template)

		st, err := s.svc.GetStatus(at(monday10), userID)
		s.Require().NoError(err)
		s.Equal(models.StateCooldownBlocked, st.State)
		s.Equal(models.BlockReasonPhone, st.BlockReason)

		_, err = s.svc.RequestInvite(at(monday10), userID)
		s.requireCode(err, dErrors.CodeBlocked)
		_, err = s.svc.Start(at(monday10), userID)
		s.requireCode(err, dErrors.CodeBlocked)
	})
}

func (s *LifecycleSuite) TestSubmitPhoneBeforeStep1() {
	s.allowLimits()
	s.seedPending(models.StateNew, monday10)
	s.identity.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(&models.IdentityClaims{UserID: userID, Phone: "+4915112345678"}, nil)
	_, err := s.svc.SubmitPhone(at(monday10), PhoneRequest{UserID: userID, Token: "tok"})
	s.requireCode(err, dErrors.CodeIllegalTransition)
}

// -----------------------------------------------------------------------------
// Invites
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) TestRequestInvite() {
	s.seedPending(models.StatePhoneVerified, monday10)
	s.transport.EXPECT().CreateInvite(gomock.Any(), userID, monday10.Add(5*time.Hour)).
		Return("https://t.me/+abc", nil).Times(1)

	inv, err := s.svc.RequestInvite(at(monday10), userID)
	s.Require().NoError(err)
	s.Equal("https://t.me/+abc", inv.Link)
	s.Equal(models.TemplateInviteIssued, s.lastNote().Template)

	again, err := s.svc.RequestInvite(at(monday10.Add(time.Hour)), userID)
	s.Require().NoError(err)
	s.Equal(inv.Link, again.Link)

	st, err := s.svc.GetStatus(at(monday10.Add(time.Hour)), userID)
	s.Require().NoError(err)
	s.Equal(models.StateInviteIssued, st.State)
	s.Equal("https://t.me/+abc", st.InviteLink)
}

func (s *LifecycleSuite) TestRequestInviteAfterExpiryCreatesNewLink() {
	s.seedPending(models.StatePhoneVerified, monday10)
	gomock.InOrder(
		s.transport.EXPECT().CreateInvite(gomock.Any(), userID, gomock.Any()).Return("first", nil),
		s.transport.EXPECT().CreateInvite(gomock.Any(), userID, gomock.Any()).Return("second", nil),
	)
	_, err := s.svc.RequestInvite(at(monday10), userID)
	s.Require().NoError(err)

	later := monday10.Add(6 * time.Hour)
	st, err := s.svc.GetStatus(at(later), userID)
	s.Require().NoError(err)
	s.Equal(models.StatePhoneVerified, st.State)

	inv, err := s.svc.RequestInvite(at(later), userID)
	s.Require().NoError(err)
	s.Equal("second", inv.Link)
}

func (s *LifecycleSuite) TestRequestInviteTransportFailure() {
	s.seedPending(models.StatePhoneVerified, monday10)
	s.transport.EXPECT().CreateInvite(gomock.Any(), userID, gomock.Any()).Return("", errors.New("bot api down"))

	_, err := s.svc.RequestInvite(at(monday10), userID)
	s.requireCode(err, dErrors.CodeExternalUnavailable)

	_, err = s.store.GetInvite(context.Background(), userID)
	s.True(store.IsNotFound(err))
	st, err := s.svc.GetStatus(at(monday10), userID)
	s.Require().NoError(err)
	s.Equal(models.StatePhoneVerified, st.State)
}

func (s *LifecycleSuite) TestRequestInviteBeforePhone() {
	s.seedPending(models.StateStep1Passed, monday10)
	_, err := s.svc.RequestInvite(at(monday10), userID)
	s.requireCode(err, dErrors.CodeIllegalTransition)
}

// -----------------------------------------------------------------------------
// Membership
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) TestJoinWeekday() {
	trial := s.join(monday10)

	s.Equal(72, trial.TotalHours)
	s.Equal(time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), trial.TrialEndAt)
	s.True(s.signer.Verify(trial))

	s.Require().Len(s.scheduled, 3)
	s.Equal(monday10.Add(24*time.Hour), s.scheduled[models.JobID(userID, models.JobReminder24h)].FireAt)
	s.Equal(monday10.Add(48*time.Hour), s.scheduled[models.JobID(userID, models.JobReminder48h)].FireAt)
	s.Equal(trial.TrialEndAt, s.scheduled[models.JobID(userID, models.JobExpiry)].FireAt)

	_, err := s.store.GetInvite(context.Background(), userID)
	s.True(store.IsNotFound(err))
	s.Equal(models.TemplateTrialStarted, s.lastNote().Template)
}

func (s *LifecycleSuite) TestJoinWeekend() {
	trial := s.join(saturday09)

	s.Equal(120, trial.TotalHours)
	s.Equal(time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC), trial.TrialEndAt)
	s.Require().Len(s.scheduled, 4)
	for _, kind := range []models.JobKind{models.JobReminder24h, models.JobReminder72h, models.JobReminder96h} {
		s.Contains(s.scheduled, models.JobID(userID, kind))
	}
}

func (s *LifecycleSuite) TestJoinUsesTimezoneOffset() {
	cfg := DefaultConfig()
	cfg.TimezoneOffsetHours = 3
	s.svc = s.newService(cfg)
	// Friday 22:00 UTC is Saturday 01:00 at UTC+3.
	trial := s.join(time.Date(2026, 3, 6, 22, 0, 0, 0, time.UTC))
	s.Equal(120, trial.TotalHours)
}

func (s *LifecycleSuite) TestDuplicateJoinIsNoop() {
	first := s.join(monday10)
	err := s.svc.HandleMembership(at(monday10.Add(time.Hour)), MembershipEvent{UserID: userID, Kind: MembershipJoin})
	s.Require().NoError(err)

	again, err := s.store.GetActive(context.Background(), userID)
	s.Require().NoError(err)
	s.Equal(first.JoinTime, again.JoinTime)
}

func (s *LifecycleSuite) TestJoinWithinCooldownIsRemoved() {
	ended := monday10.Add(-5 * 24 * time.Hour)
	s.Require().NoError(s.store.AppendUsed(context.Background(), &models.UsedTrial{
		UserID: userID, EndedReason: models.EndedLeftEarly, EndedAt: ended, CreatedAt: ended,
	}))
	s.seedInvite(monday10.Add(-time.Hour))
	s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil)

	s.Require().NoError(s.svc.HandleMembership(at(monday10), MembershipEvent{UserID: userID, Kind: MembershipJoin}))

	_, err := s.store.GetActive(context.Background(), userID)
	s.True(store.IsNotFound(err))
	history := s.usedHistory()
	s.Require().Len(history, 2)
	s.Equal(models.EndedBlockedRepeat, history[0].EndedReason)
	s.False(history[0].RemovalPending)
	s.Equal(models.TemplateRepeatJoinBlocked, s.lastNote().Template)
	s.Empty(s.scheduled)
}

func (s *LifecycleSuite) TestJoinWithoutInvite() {
	s.seedPending(models.StatePhoneVerified, monday10)
	s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil)

	err := s.svc.HandleMembership(at(monday10), MembershipEvent{UserID: userID, Kind: MembershipJoin})
	s.requireCode(err, dErrors.CodeIllegalTransition)
	_, err = s.store.GetActive(context.Background(), userID)
	s.True(store.IsNotFound(err))
}

func (s *LifecycleSuite) TestLeaveEarly() {
	s.join(monday10)
	leave := monday10.Add(18*time.Hour + 30*time.Minute)

	s.Require().NoError(s.svc.HandleMembership(at(leave), MembershipEvent{UserID: userID, Kind: MembershipLeave, ActorID: int64(userID)}))

	history := s.usedHistory()
	s.Require().Len(history, 1)
	s.Equal(models.EndedLeftEarly, history[0].EndedReason)
	s.InDelta(18.5, *history[0].HoursUsed, 0.01)
	s.InDelta(53.5, *history[0].HoursRemaining, 0.01)
	s.Equal(leave, history[0].EndedAt)
	s.Empty(s.scheduled)

	note := s.lastNote()
	s.Equal(models.TemplateLeftEarlyFeedback, note.Template)
	s.Equal("53.5", note.Data["hours_remaining"])

	st, err := s.svc.GetStatus(at(leave), userID)
	s.Require().NoError(err)
	s.Equal(models.StateLeftEarly, st.State)
	s.Require().NotNil(st.CooldownEndsAt)
	s.Equal(leave.Add(30*24*time.Hour), *st.CooldownEndsAt)
}

func (s *LifecycleSuite) TestEngineLeaveSuppressesFeedback() {
	s.join(monday10)
	s.Require().NoError(s.svc.HandleMembership(at(monday10.Add(time.Hour)), MembershipEvent{UserID: userID, Kind: MembershipLeave, ActorID: 999}))

	history := s.usedHistory()
	s.Require().Len(history, 1)
	s.Equal(models.EndedExpired, history[0].EndedReason)
	s.NotEqual(models.TemplateLeftEarlyFeedback, s.lastNote().Template)
}

func (s *LifecycleSuite) TestLeaveWithoutTrialIsIgnored() {
	s.NoError(s.svc.HandleMembership(at(monday10), MembershipEvent{UserID: userID, Kind: MembershipLeave}))
	s.Empty(s.usedHistory())
}

// -----------------------------------------------------------------------------
// Jobs and sweep
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) TestExpiryJob() {
	trial := s.join(monday10)
	expiry := s.scheduled[models.JobID(userID, models.JobExpiry)]
	s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil)

	s.Require().NoError(s.svc.HandleJob(at(trial.TrialEndAt), expiry))

	history := s.usedHistory()
	s.Require().Len(history, 1)
	s.Equal(models.EndedExpired, history[0].EndedReason)
	s.InDelta(72.0, *history[0].HoursUsed, 0.001)
	s.False(history[0].RemovalPending)
	s.Equal(models.TemplateTrialExpired, s.lastNote().Template)
	s.Empty(s.scheduled)

	s.Run("the removal's leave event is not a user leave", func() {
		s.Require().NoError(s.svc.HandleMembership(at(trial.TrialEndAt.Add(time.Second)), MembershipEvent{UserID: userID, Kind: MembershipLeave}))
		s.Len(s.usedHistory(), 1)
		s.Equal(models.TemplateTrialExpired, s.lastNote().Template)
	})

	s.Run("a second fire is a no-op", func() {
		s.Require().NoError(s.svc.HandleJob(at(trial.TrialEndAt.Add(time.Minute)), expiry))
		s.Len(s.usedHistory(), 1)
	})
}

func (s *LifecycleSuite) TestEarlyExpiryJobReschedules() {
	trial := s.join(monday10)
	job := s.scheduled[models.JobID(userID, models.JobExpiry)]
	job.FireAt = monday10.Add(time.Hour)

	s.Require().NoError(s.svc.HandleJob(at(monday10.Add(time.Hour)), job))
	_, err := s.store.GetActive(context.Background(), userID)
	s.NoError(err)
	s.Equal(trial.TrialEndAt, s.scheduled[job.ID].FireAt)
}

func (s *LifecycleSuite) TestRemovalFailureIsRetriedBySweep() {
	trial := s.join(monday10)
	expiry := s.scheduled[models.JobID(userID, models.JobExpiry)]
	gomock.InOrder(
		s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(errors.New("bot api down")),
		s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil),
	)

	s.Require().NoError(s.svc.HandleJob(at(trial.TrialEndAt), expiry))
	history := s.usedHistory()
	s.Require().Len(history, 1)
	s.True(history[0].RemovalPending)

	s.Require().NoError(s.svc.Sweep(at(trial.TrialEndAt.Add(time.Hour))))
	pending, err := s.store.ListRemovalPending(context.Background())
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *LifecycleSuite) TestRemovalRetrySkipsNewerTrial() {
	ctx := context.Background()
	s.Require().NoError(s.store.AppendUsed(ctx, &models.UsedTrial{
		UserID:         userID,
		EndedReason:    models.EndedBlockedRepeat,
		EndedAt:        monday10.Add(-40 * 24 * time.Hour),
		RemovalPending: true,
		CreatedAt:      monday10.Add(-40 * 24 * time.Hour),
	}))
	current := models.NewActiveTrial(userID, monday10, 0)
	s.svc.validator.Seal(current)
	s.Require().NoError(s.store.StartTrial(ctx, current))
	s.transport.EXPECT().RemoveMember(gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.svc.Sweep(at(monday10.Add(time.Hour))))

	pending, err := s.store.ListRemovalPending(ctx)
	s.Require().NoError(err)
	s.Empty(pending)
	_, err = s.store.GetActive(ctx, userID)
	s.NoError(err)
}

func (s *LifecycleSuite) TestReminderJob() {
	s.join(monday10)
	reminder := s.scheduled[models.JobID(userID, models.JobReminder24h)]

	s.Require().NoError(s.svc.HandleJob(at(reminder.FireAt), reminder))
	first := s.lastNote()
	s.Equal(models.TemplateTrialReminder, first.Template)
	s.Equal("48", first.Data["hours_remaining"])

	s.Require().NoError(s.svc.HandleJob(at(reminder.FireAt.Add(time.Second)), reminder))
	second := s.lastNote()
	s.Equal(first.DedupeKey, second.DedupeKey)
	s.NotEmpty(first.DedupeKey)
}

func (s *LifecycleSuite) TestNotificationsAreBoundedUnderLock() {
	cfg := DefaultConfig()
	cfg.NotifyTimeout = 250 * time.Millisecond
	s.svc = s.newService(cfg)
	s.join(monday10)
	reminder := s.scheduled[models.JobID(userID, models.JobReminder24h)]

	started := time.Now()
	s.Require().NoError(s.svc.HandleJob(at(reminder.FireAt), reminder))
	s.Require().NotEmpty(s.deadlines)
	for _, d := range s.deadlines {
		s.False(d.IsZero(), "notification sent without a deadline")
		s.WithinDuration(started, d, time.Second)
	}
}

func (s *LifecycleSuite) TestStaleReminderSkipped() {
	s.join(monday10)
	reminder := s.scheduled[models.JobID(userID, models.JobReminder24h)]
	reminder.JoinTime = monday10.Add(-10 * 24 * time.Hour)
	notes := len(s.notes)

	s.Require().NoError(s.svc.HandleJob(at(monday10.Add(24*time.Hour)), reminder))
	s.Len(s.notes, notes)
}

func (s *LifecycleSuite) TestSweepExpiresDueTrials() {
	trial := s.join(monday10)
	s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil)

	s.Require().NoError(s.svc.Sweep(at(monday10.Add(time.Hour))))
	_, err := s.store.GetActive(context.Background(), userID)
	s.NoError(err)

	s.Require().NoError(s.svc.Sweep(at(trial.TrialEndAt.Add(time.Minute))))
	_, err = s.store.GetActive(context.Background(), userID)
	s.True(store.IsNotFound(err))
}

func (s *LifecycleSuite) TestSweepForceExpiresTamperedTrial() {
	s.Run("invalid duration", func() {
		bad := models.NewActiveTrial(userID, monday10, 0)
		bad.TotalHours = 500
		bad.TrialEndAt = monday10.Add(500 * time.Hour)
		bad.Signature = s.signer.Sign(bad)
		s.Require().NoError(s.store.StartTrial(context.Background(), bad))
		s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil)

		s.Require().NoError(s.svc.Sweep(at(monday10.Add(time.Hour))))
		_, err := s.store.GetActive(context.Background(), userID)
		s.True(store.IsNotFound(err))
		s.Contains(s.logs.String(), "reason=invalid_duration")
		s.Equal(models.EndedExpired, s.usedHistory()[0].EndedReason)
	})

	s.Run("edited end time", func() {
		forged := models.NewActiveTrial(7, monday10, 0)
		forged.Signature = s.signer.Sign(forged)
		forged.TrialEndAt = forged.TrialEndAt.Add(30 * time.Minute)
		s.Require().NoError(s.store.StartTrial(context.Background(), forged))
		s.transport.EXPECT().RemoveMember(gomock.Any(), models.UserID(7)).Return(nil)

		s.Require().NoError(s.svc.Sweep(at(monday10.Add(2*time.Hour))))
		_, err := s.store.GetActive(context.Background(), 7)
		s.True(store.IsNotFound(err))
		s.Contains(s.logs.String(), "reason=signature_mismatch")
	})
}

func (s *LifecycleSuite) TestRestoreJobs() {
	running := models.NewActiveTrial(userID, monday10, 0)
	s.svc.validator.Seal(running)
	overdue := models.NewActiveTrial(7, monday10.Add(-4*24*time.Hour), 0)
	s.svc.validator.Seal(overdue)
	s.Require().NoError(s.store.StartTrial(context.Background(), running))
	s.Require().NoError(s.store.StartTrial(context.Background(), overdue))

	jobs, err := s.svc.RestoreJobs(at(monday10.Add(30 * time.Hour)))
	s.Require().NoError(err)

	ids := map[string]models.Job{}
	for _, j := range jobs {
		ids[j.ID] = j
	}
	s.Len(ids, 3)
	s.NotContains(ids, models.JobID(userID, models.JobReminder24h))
	s.Contains(ids, models.JobID(userID, models.JobReminder48h))
	s.Contains(ids, models.JobID(userID, models.JobExpiry))
	s.Contains(ids, models.JobID(7, models.JobExpiry))
}

// -----------------------------------------------------------------------------
// Bans and status
// -----------------------------------------------------------------------------

func (s *LifecycleSuite) TestBan() {
	s.join(monday10)
	s.transport.EXPECT().RemoveMember(gomock.Any(), userID).Return(nil).Times(2)

	s.Require().NoError(s.svc.Ban(at(monday10.Add(time.Hour)), userID, "abuse", "ops"))
	history := s.usedHistory()
	s.Require().Len(history, 1)
	s.Equal(models.EndedExpired, history[0].EndedReason)

	st, err := s.svc.GetStatus(at(monday10.Add(time.Hour)), userID)
	s.Require().NoError(err)
	s.Equal(models.StateBanned, st.State)

	_, err = s.svc.Start(at(monday10.Add(2*time.Hour)), userID)
	s.requireCode(err, dErrors.CodeIllegalTransition)

	err = s.svc.HandleMembership(at(monday10.Add(2*time.Hour)), MembershipEvent{UserID: userID, Kind: MembershipJoin})
	s.requireCode(err, dErrors.CodeIllegalTransition)

	s.Require().NoError(s.svc.Unban(at(monday10.Add(3*time.Hour)), userID, "ops"))
	_, err = s.svc.Start(at(monday10.Add(3*time.Hour)), userID)
	s.requireCode(err, dErrors.CodeCooldown)

	err = s.svc.Unban(at(monday10.Add(3*time.Hour)), userID, "ops")
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *LifecycleSuite) TestStatusOfActiveTrial() {
	s.join(monday10)
	st, err := s.svc.GetStatus(at(monday10.Add(10*time.Hour)), userID)
	s.Require().NoError(err)
	s.Equal(models.StateActive, st.State)
	s.InDelta(10.0, *st.ElapsedHours, 0.001)
	s.InDelta(62.0, *st.RemainingHours, 0.001)
	s.Equal(72, st.TotalHours)
}

func (s *LifecycleSuite) TestStatusUnknownUser() {
	st, err := s.svc.GetStatus(at(monday10), userID)
	s.Require().NoError(err)
	s.Equal(models.StateNone, st.State)
}

func (s *LifecycleSuite) TestClockRegressionDoesNotRewindEngine() {
	s.join(monday10)
	_, err := s.svc.GetStatus(at(monday10.Add(10*time.Hour)), userID)
	s.Require().NoError(err)

	st, err := s.svc.GetStatus(at(monday10.Add(2*time.Hour)), userID)
	s.Require().NoError(err)
	s.InDelta(10.0, *st.ElapsedHours, 0.01)
	s.Contains(s.logs.String(), "clock regression")
}

func (s *LifecycleSuite) TestOverlappingRequestsKeepWallClock() {
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 15 {
				_, err := s.svc.GetStatus(context.Background(), userID)
				s.NoError(err)
			}
		}()
	}
	wg.Wait()
	s.NotContains(s.logs.String(), "clock regression")
	s.WithinDuration(time.Now(), s.svc.now(context.Background()), time.Second)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+49 151 2345678":  "+491512345678",
		"919812345678":     "+919812345678",
		"(030) 123-45-678": "+03012345678",
	}
	for in, want := range cases {
		got, ok := normalizePhone(in)
		if !ok || got != want {
			t.Fatalf("normalizePhone(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "12", "+49abc1234567", "49+1234567"} {
		if _, ok := normalizePhone(bad); ok {
			t.Fatalf("normalizePhone(%q) accepted", bad)
		}
	}
}
