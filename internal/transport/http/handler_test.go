package httptransport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trialgate/internal/identity"
	"trialgate/internal/lifecycle"
	rlmodels "trialgate/internal/ratelimit/models"
	"trialgate/internal/trial/models"
	"trialgate/internal/transport/http/mocks"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/httputil"
	"trialgate/pkg/platform/middleware/secret"
	"trialgate/pkg/testutil"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var testSecret = strings.Repeat("k", secret.MinLength)

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockService
	limiter  *mocks.MockLimiter
	initData *identity.InitDataValidator
	router   http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.limiter = mocks.NewMockLimiter(s.ctrl)
	s.initData = identity.NewInitDataValidator("123456:test-bot", identity.DefaultMaxAge, identity.DefaultLeeway)
	s.router = s.newRouter()
}

func (s *HandlerSuite) newRouter(opts ...Option) http.Handler {
	opts = append([]Option{
		WithLogger(testutil.DiscardLogger()),
		WithGatherer(prometheus.NewRegistry()),
	}, opts...)
	return New(s.service, s.limiter, s.initData, testSecret, opts...).Routes()
}

// as returns headers authenticating the caller as userID.
func (s *HandlerSuite) as(userID models.UserID) map[string]string {
	return map[string]string{HeaderInitData: s.initData.Sign(userID, time.Now())}
}

func (s *HandlerSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rdr)
	r.RemoteAddr = "203.0.113.9:4444"
	r.Header.Set("User-Agent", browserUA)
	r.Header.Set(HeaderInitData, s.initData.Sign(7, time.Now()))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *HandlerSuite) internal() map[string]string {
	return map[string]string{secret.HeaderAPISecret: testSecret}
}

func (s *HandlerSuite) errorBody(w *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestStart() {
	s.Run("returns the new state", func() {
		s.service.EXPECT().Start(gomock.Any(), models.UserID(7)).
			Return(&lifecycle.Status{UserID: 7, State: models.StateNew}, nil)
		w := s.do(http.MethodPost, "/api/v1/start", `{"user_id":7}`, nil)
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"state":"new"`)
	})

	s.Run("cooldown maps to 403 with template text", func() {
		s.service.EXPECT().Start(gomock.Any(), models.UserID(7)).
			Return(nil, dErrors.New(dErrors.CodeCooldown, "cooldown until tomorrow"))
		w := s.do(http.MethodPost, "/api/v1/start", `{"user_id":7}`, nil)
		s.Equal(http.StatusForbidden, w.Code)
		body := s.errorBody(w)
		s.Equal(string(dErrors.CodeCooldown), body.Error)
		s.Equal(httputil.Message(dErrors.CodeCooldown), body.Message)
		s.NotContains(w.Body.String(), "tomorrow")
	})

	s.Run("bots are rejected before the service", func() {
		w := s.do(http.MethodPost, "/api/v1/start", `{"user_id":7}`, map[string]string{"User-Agent": "Googlebot/2.1 (+http://www.google.com/bot.html)"})
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("malformed body", func() {
		w := s.do(http.MethodPost, "/api/v1/start", `{"user_id":`, nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestStep1UsesConnectionIP() {
	s.service.EXPECT().SubmitStep1(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req lifecycle.Step1Request) (*lifecycle.Status, error) {
			s.Equal("203.0.113.9", req.IP)
			s.Equal("DE", req.Country)
			return &lifecycle.Status{UserID: 7, State: models.StateStep1Passed}, nil
		})
	w := s.do(http.MethodPost, "/api/v1/verify/step1",
		`{"user_id":7,"display_name":"Ann","country":"DE","email":"ann@example.com"}`, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"state":"step1_passed"`)
}

func (s *HandlerSuite) TestStep1RateLimitedSetsRetryAfter() {
	limited := dErrors.Wrap(&lifecycle.RetryAfterError{RetryAfter: 40 * time.Minute}, dErrors.CodeRateLimited, "too many requests")
	s.service.EXPECT().SubmitStep1(gomock.Any(), gomock.Any()).Return(nil, limited)
	w := s.do(http.MethodPost, "/api/v1/verify/step1", `{"user_id":7,"display_name":"Ann","country":"DE"}`, nil)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("2400", w.Header().Get("Retry-After"))
}

func (s *HandlerSuite) TestPhone() {
	s.service.EXPECT().SubmitPhone(gomock.Any(), lifecycle.PhoneRequest{UserID: 7, Phone: "+15551234567", Token: "tok"}).
		Return(&lifecycle.Status{UserID: 7, State: models.StatePhoneVerified}, nil)
	w := s.do(http.MethodPost, "/api/v1/verify/phone", `{"user_id":7,"phone":"+15551234567","token":"tok"}`, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestInvite() {
	expires := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	s.service.EXPECT().RequestInvite(gomock.Any(), models.UserID(7)).
		Return(&models.Invite{UserID: 7, Link: "https://t.me/+abc", ExpiresAt: expires}, nil)
	w := s.do(http.MethodPost, "/api/v1/invite", `{"user_id":7}`, nil)
	s.Equal(http.StatusOK, w.Code)
	var body inviteResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("https://t.me/+abc", body.InviteLink)
	s.True(expires.Equal(body.ExpiresAt))
}

func (s *HandlerSuite) TestPublicStatus() {
	s.Run("active trial", func() {
		elapsed, remaining := 18.5, 53.5
		end := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
		s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyStatusCheck, "203.0.113.9").
			Return(&rlmodels.RateLimitResult{Allowed: true}, nil)
		s.service.EXPECT().GetStatus(gomock.Any(), models.UserID(7)).Return(&lifecycle.Status{
			UserID: 7, State: models.StateActive, ElapsedHours: &elapsed, RemainingHours: &remaining,
			TotalHours: 72, TrialEndAt: &end, ManualReview: true,
		}, nil)

		w := s.do(http.MethodGet, "/api/v1/status/7", "", nil)
		s.Equal(http.StatusOK, w.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal("active", body["state"])
		s.InDelta(53.5, body["remaining_hours"], 0.001)
		s.EqualValues(72, body["total_hours"])
		s.NotContains(body, "manual_review")
		s.Contains(body, "cooldown_ends_at")
	})

	s.Run("no records reports none", func() {
		s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(&rlmodels.RateLimitResult{Allowed: true}, nil)
		s.service.EXPECT().GetStatus(gomock.Any(), models.UserID(8)).Return(&lifecycle.Status{UserID: 8}, nil)
		w := s.do(http.MethodGet, "/api/v1/status/8", "", s.as(8))
		s.Contains(w.Body.String(), `"state":"none"`)
	})

	s.Run("rate limited", func() {
		s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&rlmodels.RateLimitResult{Allowed: false, RetryAfter: 60}, nil)
		w := s.do(http.MethodGet, "/api/v1/status/7", "", nil)
		s.Equal(http.StatusTooManyRequests, w.Code)
		s.Equal("60", w.Header().Get("Retry-After"))
	})

	s.Run("invalid user id", func() {
		s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(&rlmodels.RateLimitResult{Allowed: true}, nil)
		w := s.do(http.MethodGet, "/api/v1/status/abc", "", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestInternalRoutesRequireSecret() {
	w := s.do(http.MethodGet, "/internal/v1/status/7", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/internal/v1/membership", `{"user_id":7,"kind":"join"}`,
		map[string]string{secret.HeaderAPISecret: "wrong"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestInternalStatusIncludesReviewFlag() {
	s.service.EXPECT().GetStatus(gomock.Any(), models.UserID(7)).
		Return(&lifecycle.Status{UserID: 7, State: models.StateStep1Passed, ManualReview: true}, nil)
	w := s.do(http.MethodGet, "/internal/v1/status/7", "", s.internal())
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"manual_review":true`)
}

func (s *HandlerSuite) TestMembership() {
	s.Run("join", func() {
		s.service.EXPECT().HandleMembership(gomock.Any(), lifecycle.MembershipEvent{UserID: 7, Kind: lifecycle.MembershipJoin, ActorID: 7}).Return(nil)
		w := s.do(http.MethodPost, "/internal/v1/membership", `{"user_id":7,"kind":"join","actor_id":7}`, s.internal())
		s.Equal(http.StatusNoContent, w.Code)
	})

	s.Run("unknown kind", func() {
		w := s.do(http.MethodPost, "/internal/v1/membership", `{"user_id":7,"kind":"wave"}`, s.internal())
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("illegal transition", func() {
		s.service.EXPECT().HandleMembership(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeIllegalTransition, "no invite"))
		w := s.do(http.MethodPost, "/internal/v1/membership", `{"user_id":7,"kind":"join"}`, s.internal())
		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *HandlerSuite) TestBans() {
	s.service.EXPECT().Ban(gomock.Any(), models.UserID(7), "abuse", "mod-1").Return(nil)
	w := s.do(http.MethodPost, "/internal/v1/bans", `{"user_id":7,"reason":"abuse","actor_id":"mod-1"}`, s.internal())
	s.Equal(http.StatusNoContent, w.Code)

	s.service.EXPECT().Unban(gomock.Any(), models.UserID(7), "mod-1").Return(nil)
	w = s.do(http.MethodDelete, "/internal/v1/bans/7?actor_id=mod-1", "", s.internal())
	s.Equal(http.StatusNoContent, w.Code)

	s.service.EXPECT().Unban(gomock.Any(), models.UserID(8), "").Return(dErrors.New(dErrors.CodeNotFound, "not banned"))
	w = s.do(http.MethodDelete, "/internal/v1/bans/8", "", s.internal())
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestInternalErrorIsHidden() {
	s.service.EXPECT().RequestInvite(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.Wrap(io.ErrUnexpectedEOF, dErrors.CodeInternal, "store exploded"))
	w := s.do(http.MethodPost, "/api/v1/invite", `{"user_id":7}`, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "exploded")
}

func (s *HandlerSuite) TestPublicRoutesRequireInitData() {
	unsigned := map[string]string{HeaderInitData: ""}
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/v1/start", `{"user_id":7}`},
		{http.MethodPost, "/api/v1/verify/step1", `{"user_id":7,"display_name":"Ann","country":"DE"}`},
		{http.MethodPost, "/api/v1/verify/phone", `{"user_id":7,"phone":"+15551234567","token":"tok"}`},
		{http.MethodPost, "/api/v1/invite", `{"user_id":42}`},
		{http.MethodGet, "/api/v1/status/42", ""},
	} {
		s.Run(tc.path, func() {
			w := s.do(tc.method, tc.path, tc.body, unsigned)
			s.Equal(http.StatusUnauthorized, w.Code)
			s.NotContains(w.Body.String(), "invite_link")
		})
	}

	s.Run("forged payload", func() {
		forged := identity.NewInitDataValidator("999:other-bot", identity.DefaultMaxAge, identity.DefaultLeeway)
		w := s.do(http.MethodPost, "/api/v1/invite", `{}`, map[string]string{HeaderInitData: forged.Sign(42, time.Now())})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("stale payload", func() {
		w := s.do(http.MethodPost, "/api/v1/invite", `{}`, map[string]string{HeaderInitData: s.initData.Sign(42, time.Now().Add(-time.Hour))})
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *HandlerSuite) TestOtherUsersRecordsAreForbidden() {
	s.Run("status of another user", func() {
		s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(&rlmodels.RateLimitResult{Allowed: true}, nil)
		w := s.do(http.MethodGet, "/api/v1/status/42", "", s.as(7))
		s.Equal(http.StatusForbidden, w.Code)
		s.Equal(string(dErrors.CodeForbidden), s.errorBody(w).Error)
	})

	s.Run("invite for another user", func() {
		w := s.do(http.MethodPost, "/api/v1/invite", `{"user_id":42}`, s.as(7))
		s.Equal(http.StatusForbidden, w.Code)
		s.NotContains(w.Body.String(), "t.me")
	})

	s.Run("step one for another user", func() {
		w := s.do(http.MethodPost, "/api/v1/verify/step1", `{"user_id":42,"display_name":"Ann","country":"DE"}`, s.as(7))
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *HandlerSuite) TestUserComesFromInitData() {
	s.Run("body without user id", func() {
		s.service.EXPECT().RequestInvite(gomock.Any(), models.UserID(42)).
			Return(&models.Invite{UserID: 42, Link: "https://t.me/+own", ExpiresAt: time.Now().Add(time.Hour)}, nil)
		w := s.do(http.MethodPost, "/api/v1/invite", `{}`, s.as(42))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("own status without path id", func() {
		s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(&rlmodels.RateLimitResult{Allowed: true}, nil)
		s.service.EXPECT().GetStatus(gomock.Any(), models.UserID(42)).Return(&lifecycle.Status{UserID: 42}, nil)
		w := s.do(http.MethodGet, "/api/v1/status", "", s.as(42))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("authorization header scheme", func() {
		s.service.EXPECT().Start(gomock.Any(), models.UserID(42)).Return(&lifecycle.Status{UserID: 42, State: models.StateNew}, nil)
		w := s.do(http.MethodPost, "/api/v1/start", `{}`, map[string]string{
			HeaderInitData:  "",
			"Authorization": "tma " + s.initData.Sign(42, time.Now()),
		})
		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *HandlerSuite) TestForwardedHeadersFromUntrustedPeerAreIgnored() {
	s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyStatusCheck, "203.0.113.9").
		Return(&rlmodels.RateLimitResult{Allowed: true}, nil).Times(3)
	s.service.EXPECT().GetStatus(gomock.Any(), models.UserID(7)).Return(&lifecycle.Status{UserID: 7}, nil).Times(3)
	for _, spoofed := range []string{"10.0.0.1", "10.0.0.2", "198.51.100.77"} {
		w := s.do(http.MethodGet, "/api/v1/status/7", "", map[string]string{
			"X-Forwarded-For": spoofed,
			"X-Real-IP":       spoofed,
		})
		s.Equal(http.StatusOK, w.Code)
	}

	s.service.EXPECT().SubmitStep1(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req lifecycle.Step1Request) (*lifecycle.Status, error) {
			s.Equal("203.0.113.9", req.IP)
			return &lifecycle.Status{UserID: 7, State: models.StateStep1Passed}, nil
		})
	w := s.do(http.MethodPost, "/api/v1/verify/step1", `{"display_name":"Ann","country":"DE"}`,
		map[string]string{"X-Forwarded-For": "10.0.0.1"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestForwardedHeadersFromTrustedProxy() {
	s.router = s.newRouter(WithTrustedProxies([]netip.Prefix{netip.MustParsePrefix("203.0.113.0/24")}))
	s.limiter.EXPECT().Check(gomock.Any(), rlmodels.PolicyStatusCheck, "198.51.100.7").
		Return(&rlmodels.RateLimitResult{Allowed: true}, nil)
	s.service.EXPECT().GetStatus(gomock.Any(), models.UserID(7)).Return(&lifecycle.Status{UserID: 7}, nil)
	w := s.do(http.MethodGet, "/api/v1/status/7", "", map[string]string{"X-Forwarded-For": "198.51.100.7, 203.0.113.2"})
	s.Equal(http.StatusOK, w.Code)
}
