package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trialgate/internal/ratelimit/metrics"
	"trialgate/internal/ratelimit/mocks"
	"trialgate/internal/ratelimit/models"
	"trialgate/internal/ratelimit/ports"
	"trialgate/internal/ratelimit/store/bucket"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/circuit"
	"trialgate/pkg/requestcontext"
	"trialgate/pkg/testutil"
)

type LimiterSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	primary *mocks.MockBucketStore
	now     time.Time
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockBucketStore(s.ctrl)
	s.now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
}

func (s *LimiterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LimiterSuite) ctxAt(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *LimiterSuite) newLimiter(primary ports.BucketStore, opts ...Option) *Limiter {
	opts = append([]Option{
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	}, opts...)
	l, err := New(primary, opts...)
	s.Require().NoError(err)
	return l
}

func (s *LimiterSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Require().Error(err)
}

// =============================================================================
// Policy enforcement
// =============================================================================

func (s *LimiterSuite) TestSixthSubmissionFromSameIPIsRateLimited() {
	l := s.newLimiter(bucket.NewInMemoryBucketStore())
	ip := "203.0.113.10"

	for i := 0; i < models.PolicyInitialView.Limit; i++ {
		res, err := l.Check(s.ctxAt(time.Duration(i)*time.Minute), models.PolicyInitialView, ip)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}

	res, err := l.Check(s.ctxAt(10*time.Minute), models.PolicyInitialView, ip)
	s.Require().NoError(err)
	s.False(res.Allowed)

	res, err = l.Check(s.ctxAt(time.Hour), models.PolicyInitialView, ip)
	s.Require().NoError(err)
	s.True(res.Allowed, "window rolled over")
}

func (s *LimiterSuite) TestActionsHaveIndependentCounters() {
	l := s.newLimiter(bucket.NewInMemoryBucketStore())

	for i := 0; i < models.PolicyVerifyStep1.Limit; i++ {
		_, err := l.Check(s.ctxAt(0), models.PolicyVerifyStep1, "42")
		s.Require().NoError(err)
	}
	res, err := l.Check(s.ctxAt(0), models.PolicyVerifyStep1, "42")
	s.Require().NoError(err)
	s.False(res.Allowed)

	res, err = l.Check(s.ctxAt(0), models.PolicyVerifyPhone, "42")
	s.Require().NoError(err)
	s.True(res.Allowed)
}

// =============================================================================
// Store failure
// =============================================================================

func (s *LimiterSuite) TestStoreFailureAppliesFailMode() {
	l := s.newLimiter(s.primary)
	storeErr := errors.New("connection refused")

	s.Run("fail closed for writes", func() {
		s.primary.EXPECT().Allow(gomock.Any(), gomock.Any(), 3, time.Hour).Return(nil, storeErr)

		res, err := l.Check(s.ctxAt(0), models.PolicyVerifyStep1, "42")
		s.Require().Error(err)
		s.Nil(res)
		s.True(dErrors.HasCode(err, dErrors.CodeExternalUnavailable))
	})

	s.Run("fail open for status reads", func() {
		s.primary.EXPECT().Allow(gomock.Any(), gomock.Any(), 20, 15*time.Minute).Return(nil, storeErr)

		res, err := l.Check(s.ctxAt(0), models.PolicyStatusCheck, "203.0.113.1")
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.True(res.Degraded)
	})
}

func (s *LimiterSuite) TestOpenCircuitUsesFallback() {
	fallback := bucket.NewInMemoryBucketStore()
	breaker := circuit.New("ratelimit", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	l := s.newLimiter(s.primary, WithFallback(fallback, breaker))
	storeErr := errors.New("i/o timeout")

	s.primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storeErr).Times(4)

	// first failure: breaker still closed, fail closed applies
	_, err := l.Check(s.ctxAt(0), models.PolicyVerifyPhone, "7")
	s.Require().Error(err)

	// second failure opens the breaker; fallback counts from here
	for i := 0; i < models.PolicyVerifyPhone.Limit; i++ {
		res, err := l.Check(s.ctxAt(0), models.PolicyVerifyPhone, "7")
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.True(res.Degraded)
	}
	s.True(breaker.IsOpen())

	// primary recovers and closes the breaker
	s.primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&models.RateLimitResult{Allowed: true, Limit: 3, Remaining: 2}, nil)
	res, err := l.Check(s.ctxAt(0), models.PolicyVerifyPhone, "7")
	s.Require().NoError(err)
	s.False(res.Degraded)
	s.False(breaker.IsOpen())
}

func (s *LimiterSuite) TestPrune() {
	mem := bucket.NewInMemoryBucketStore()
	l := s.newLimiter(mem)
	_, err := l.Check(s.ctxAt(0), models.PolicyStatusCheck, "198.51.100.1")
	s.Require().NoError(err)

	s.Equal(1, l.Prune(s.ctxAt(time.Hour)))
}
