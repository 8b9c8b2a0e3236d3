package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"trialgate/internal/trial/models"
	"trialgate/pkg/platform/sentinel"
)

// InMemoryStore implements Store with maps guarded by a single mutex.
// Records are copied on the way in and out.
type InMemoryStore struct {
	mu      sync.RWMutex
	pending map[models.UserID]models.PendingVerification
	active  map[models.UserID]models.ActiveTrial
	used    []models.UsedTrial
	invites map[models.UserID]models.Invite
	bans    map[models.UserID]models.Ban
	nextID  int64
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pending: make(map[models.UserID]models.PendingVerification),
		active:  make(map[models.UserID]models.ActiveTrial),
		invites: make(map[models.UserID]models.Invite),
		bans:    make(map[models.UserID]models.Ban),
	}
}

// -----------------------------------------------------------------------------
// Pending verifications
// -----------------------------------------------------------------------------

func (s *InMemoryStore) GetPending(_ context.Context, id models.UserID) (*models.PendingVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[id]
	if !ok {
		return nil, fmt.Errorf("pending verification %s: %w", id, sentinel.ErrNotFound)
	}
	return clonePending(p), nil
}

func (s *InMemoryStore) UpdatePending(_ context.Context, id models.UserID, fn func(p *models.PendingVerification) error) (*models.PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := &models.PendingVerification{UserID: id}
	if p, ok := s.pending[id]; ok {
		current = clonePending(p)
	}
	if err := fn(current); err != nil {
		return nil, err
	}
	current.UserID = id
	s.pending[id] = *clonePending(*current)
	return current, nil
}

func (s *InMemoryStore) DeletePending(_ context.Context, id models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	return nil
}

func (s *InMemoryStore) DeleteStalePending(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, p := range s.pending {
		if !p.Terminal() && p.UpdatedAt.Before(cutoff) {
			delete(s.pending, id)
			removed++
		}
	}
	return removed, nil
}

// -----------------------------------------------------------------------------
// Trials
// -----------------------------------------------------------------------------

func (s *InMemoryStore) GetActive(_ context.Context, id models.UserID) (*models.ActiveTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.active[id]
	if !ok {
		return nil, fmt.Errorf("active trial %s: %w", id, sentinel.ErrNotFound)
	}
	return cloneActive(t), nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*models.ActiveTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ActiveTrial, 0, len(s.active))
	for _, t := range s.active {
		out = append(out, cloneActive(t))
	}
	slices.SortFunc(out, func(a, b *models.ActiveTrial) int { return a.TrialEndAt.Compare(b.TrialEndAt) })
	return out, nil
}

func (s *InMemoryStore) StartTrial(_ context.Context, trial *models.ActiveTrial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.active[trial.UserID]; exists {
		return fmt.Errorf("start trial %s: %w", trial.UserID, sentinel.ErrConflict)
	}
	s.active[trial.UserID] = *cloneActive(*trial)
	delete(s.pending, trial.UserID)
	delete(s.invites, trial.UserID)
	return nil
}

func (s *InMemoryStore) FinalizeTrial(_ context.Context, used *models.UsedTrial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[used.UserID]; !ok {
		return fmt.Errorf("finalize trial %s: %w", used.UserID, sentinel.ErrNotFound)
	}
	s.appendUsedLocked(used)
	delete(s.active, used.UserID)
	return nil
}

func (s *InMemoryStore) AppendUsed(_ context.Context, used *models.UsedTrial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendUsedLocked(used)
	return nil
}

func (s *InMemoryStore) appendUsedLocked(used *models.UsedTrial) {
	s.nextID++
	used.ID = s.nextID
	s.used = append(s.used, *cloneUsed(*used))
}

func (s *InMemoryStore) ListUsed(_ context.Context, id models.UserID) ([]*models.UsedTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UsedTrial
	for i := len(s.used) - 1; i >= 0; i-- {
		if s.used[i].UserID == id {
			out = append(out, cloneUsed(s.used[i]))
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListRemovalPending(_ context.Context) ([]*models.UsedTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UsedTrial
	for _, u := range s.used {
		if u.RemovalPending {
			out = append(out, cloneUsed(u))
		}
	}
	return out, nil
}

func (s *InMemoryStore) ClearRemovalPending(_ context.Context, usedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.used {
		if s.used[i].ID == usedID {
			s.used[i].RemovalPending = false
			return nil
		}
	}
	return fmt.Errorf("used trial %d: %w", usedID, sentinel.ErrNotFound)
}

// -----------------------------------------------------------------------------
// Invites
// -----------------------------------------------------------------------------

func (s *InMemoryStore) GetInvite(_ context.Context, id models.UserID) (*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, fmt.Errorf("invite %s: %w", id, sentinel.ErrNotFound)
	}
	return &inv, nil
}

func (s *InMemoryStore) SaveInvite(_ context.Context, invite *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites[invite.UserID] = *invite
	return nil
}

func (s *InMemoryStore) DeleteInvite(_ context.Context, id models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invites, id)
	return nil
}

func (s *InMemoryStore) DeleteExpiredInvites(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, inv := range s.invites {
		if !inv.Live(now) {
			delete(s.invites, id)
			removed++
		}
	}
	return removed, nil
}

// -----------------------------------------------------------------------------
// Bans
// -----------------------------------------------------------------------------

func (s *InMemoryStore) GetBan(_ context.Context, id models.UserID) (*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bans[id]
	if !ok {
		return nil, fmt.Errorf("ban %s: %w", id, sentinel.ErrNotFound)
	}
	return &b, nil
}

func (s *InMemoryStore) SaveBan(_ context.Context, ban *models.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[ban.UserID] = *ban
	return nil
}

func (s *InMemoryStore) DeleteBan(_ context.Context, id models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, id)
	return nil
}

func clonePending(p models.PendingVerification) *models.PendingVerification {
	p.AttemptTimestamps = slices.Clone(p.AttemptTimestamps)
	return &p
}

func cloneActive(t models.ActiveTrial) *models.ActiveTrial {
	t.Signature = slices.Clone(t.Signature)
	return &t
}

func cloneUsed(u models.UsedTrial) *models.UsedTrial {
	if u.HoursUsed != nil {
		v := *u.HoursUsed
		u.HoursUsed = &v
	}
	if u.HoursRemaining != nil {
		v := *u.HoursRemaining
		u.HoursRemaining = &v
	}
	return &u
}
