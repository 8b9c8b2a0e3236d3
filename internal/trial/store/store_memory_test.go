package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trialgate/internal/trial/models"
	"trialgate/pkg/platform/sentinel"
)

// recordStoreSuite exercises the Store contract; each backend supplies newStore.
type recordStoreSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func() Store
	store    Store
	now      time.Time
}

func (s *recordStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.store = s.newStore()
}

func (s *recordStoreSuite) TestUpdatePendingCreatesRecord() {
	p, err := s.store.UpdatePending(s.ctx, 42, func(p *models.PendingVerification) error {
		p.State = models.StateNew
		p.SourceIP = "203.0.113.0"
		p.CreatedAt = s.now
		p.RecordAttempt(s.now)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(models.UserID(42), p.UserID)

	got, err := s.store.GetPending(s.ctx, 42)
	s.Require().NoError(err)
	s.Equal(models.StateNew, got.State)
	s.Equal("203.0.113.0", got.SourceIP)
	s.Require().Len(got.AttemptTimestamps, 1)
	s.True(got.AttemptTimestamps[0].Equal(s.now))
}

func (s *recordStoreSuite) TestUpdatePendingAbortKeepsPrevious() {
	_, err := s.store.UpdatePending(s.ctx, 7, func(p *models.PendingVerification) error {
		p.State = models.StateNew
		p.CreatedAt, p.UpdatedAt = s.now, s.now
		return nil
	})
	s.Require().NoError(err)

	boom := errors.New("boom")
	_, err = s.store.UpdatePending(s.ctx, 7, func(p *models.PendingVerification) error {
		p.State = models.StateStep1Passed
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.GetPending(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(models.StateNew, got.State)
}

func (s *recordStoreSuite) TestGetPendingMissing() {
	_, err := s.store.GetPending(s.ctx, 99)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *recordStoreSuite) TestStartTrialClearsPendingAndInvite() {
	s.seedPending(5, models.StatePhoneVerified, s.now)
	s.Require().NoError(s.store.SaveInvite(s.ctx, &models.Invite{
		UserID: 5, Link: "https://t.me/+abc", CreatedAt: s.now, ExpiresAt: s.now.Add(5 * time.Hour),
	}))

	trial := models.NewActiveTrial(5, s.now, 0)
	trial.Signature = []byte{1, 2, 3}
	s.Require().NoError(s.store.StartTrial(s.ctx, trial))

	_, err := s.store.GetPending(s.ctx, 5)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetInvite(s.ctx, 5)
	s.ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.store.GetActive(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(models.WeekdayTrialHours, got.TotalHours)
	s.True(got.TrialEndAt.Equal(s.now.Add(72 * time.Hour)))
	s.Equal([]byte{1, 2, 3}, got.Signature)

	err = s.store.StartTrial(s.ctx, trial)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *recordStoreSuite) TestFinalizeTrialMovesToUsed() {
	trial := models.NewActiveTrial(8, s.now, 0)
	trial.Signature = []byte{9}
	s.Require().NoError(s.store.StartTrial(s.ctx, trial))

	used, remaining := 72.0, 0.0
	record := &models.UsedTrial{
		UserID:         8,
		EndedReason:    models.EndedExpired,
		EndedAt:        trial.TrialEndAt,
		HoursUsed:      &used,
		HoursRemaining: &remaining,
		CreatedAt:      trial.TrialEndAt,
	}
	s.Require().NoError(s.store.FinalizeTrial(s.ctx, record))
	s.NotZero(record.ID)

	_, err := s.store.GetActive(s.ctx, 8)
	s.ErrorIs(err, sentinel.ErrNotFound)

	history, err := s.store.ListUsed(s.ctx, 8)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.EndedExpired, history[0].EndedReason)
	s.Require().NotNil(history[0].HoursUsed)
	s.InDelta(72.0, *history[0].HoursUsed, 0.001)

	err = s.store.FinalizeTrial(s.ctx, &models.UsedTrial{UserID: 8, EndedReason: models.EndedExpired, CreatedAt: s.now})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *recordStoreSuite) TestListUsedNewestFirstAndLegacyRows() {
	s.Require().NoError(s.store.AppendUsed(s.ctx, &models.UsedTrial{
		UserID: 3, EndedReason: models.EndedLeftEarly, CreatedAt: s.now.Add(-48 * time.Hour),
	}))
	s.Require().NoError(s.store.AppendUsed(s.ctx, &models.UsedTrial{
		UserID: 3, EndedReason: models.EndedBlockedRepeat, EndedAt: s.now, CreatedAt: s.now,
	}))
	s.Require().NoError(s.store.AppendUsed(s.ctx, &models.UsedTrial{
		UserID: 4, EndedReason: models.EndedExpired, EndedAt: s.now, CreatedAt: s.now,
	}))

	history, err := s.store.ListUsed(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.EndedBlockedRepeat, history[0].EndedReason)
	s.Equal(models.EndedLeftEarly, history[1].EndedReason)
	s.True(history[1].EndedAt.IsZero())
	s.Nil(history[1].HoursUsed)
}

func (s *recordStoreSuite) TestRemovalPendingLifecycle() {
	record := &models.UsedTrial{UserID: 11, EndedReason: models.EndedExpired, EndedAt: s.now, RemovalPending: true, CreatedAt: s.now}
	s.Require().NoError(s.store.AppendUsed(s.ctx, record))

	pending, err := s.store.ListRemovalPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(record.ID, pending[0].ID)

	s.Require().NoError(s.store.ClearRemovalPending(s.ctx, record.ID))
	pending, err = s.store.ListRemovalPending(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)

	s.ErrorIs(s.store.ClearRemovalPending(s.ctx, 9999), sentinel.ErrNotFound)
}

func (s *recordStoreSuite) TestDeleteStalePendingKeepsBlocked() {
	old := s.now.Add(-48 * time.Hour)
	s.seedPending(1, models.StateNew, old)
	s.seedPending(2, models.StateCooldownBlocked, old)
	s.seedPending(3, models.StateStep1Passed, s.now)

	removed, err := s.store.DeleteStalePending(s.ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.store.GetPending(s.ctx, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetPending(s.ctx, 2)
	s.NoError(err)
	_, err = s.store.GetPending(s.ctx, 3)
	s.NoError(err)
}

func (s *recordStoreSuite) TestDeleteExpiredInvites() {
	s.Require().NoError(s.store.SaveInvite(s.ctx, &models.Invite{UserID: 1, Link: "a", CreatedAt: s.now, ExpiresAt: s.now.Add(-time.Minute)}))
	s.Require().NoError(s.store.SaveInvite(s.ctx, &models.Invite{UserID: 2, Link: "b", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour)}))

	removed, err := s.store.DeleteExpiredInvites(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, removed)

	inv, err := s.store.GetInvite(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("b", inv.Link)
}

func (s *recordStoreSuite) TestBans() {
	s.Require().NoError(s.store.SaveBan(s.ctx, &models.Ban{UserID: 6, Reason: "abuse", CreatedAt: s.now}))
	b, err := s.store.GetBan(s.ctx, 6)
	s.Require().NoError(err)
	s.Equal("abuse", b.Reason)

	s.Require().NoError(s.store.DeleteBan(s.ctx, 6))
	_, err = s.store.GetBan(s.ctx, 6)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *recordStoreSuite) seedPending(id models.UserID, state models.State, at time.Time) {
	_, err := s.store.UpdatePending(s.ctx, id, func(p *models.PendingVerification) error {
		p.State = state
		p.CreatedAt, p.UpdatedAt = at, at
		return nil
	})
	s.Require().NoError(err)
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &recordStoreSuite{newStore: func() Store { return NewInMemoryStore() }})
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	trial := models.NewActiveTrial(1, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 0)
	trial.Signature = []byte{1}
	if err := st.StartTrial(ctx, trial); err != nil {
		t.Fatal(err)
	}
	trial.Signature[0] = 2

	got, err := st.GetActive(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Signature[0] != 1 {
		t.Fatalf("stored signature mutated through caller slice")
	}
}
