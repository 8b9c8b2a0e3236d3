package bucket

import (
	"context"
	"sync"
	"time"

	"trialgate/internal/ratelimit/models"
	"trialgate/pkg/requestcontext"
)

// InMemoryBucketStore implements BucketStore with fixed windows held in process memory.
// It backs single-instance deployments and serves as the fallback when Redis is down.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
}

type fixedWindow struct {
	start  time.Time
	count  int
	window time.Duration
}

// NewInMemoryBucketStore creates a new in-memory bucket store.
func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		windows: make(map[string]*fixedWindow),
	}
}

// Allow increments the counter for key and reports whether the post-increment
// count is within limit. A window older than its duration restarts at zero.
func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil || w.expired(now) {
		w = &fixedWindow{start: now, window: window}
		s.windows[key] = w
	}
	w.count++

	return models.NewResult(w.count, limit, w.start.Add(window), now), nil
}

// Reset clears the counter for a key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Snapshot returns the current window for key, if one is live.
func (s *InMemoryBucketStore) Snapshot(ctx context.Context, key string) (models.Window, bool) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil || w.expired(now) {
		return models.Window{}, false
	}
	return models.Window{SubjectKey: key, WindowStart: w.start, Count: w.count}, true
}

// Prune drops windows that have rolled over and returns how many were removed.
func (s *InMemoryBucketStore) Prune(ctx context.Context) int {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if w.expired(now) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

func (w *fixedWindow) expired(now time.Time) bool {
	return !now.Before(w.start.Add(w.window))
}
