// Package ports defines the interfaces the rate limiter depends on.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"trialgate/internal/ratelimit/models"
)

// BucketStore manages fixed-window counters. Allow must increment and compare
// atomically: concurrent callers never observe the same post-increment count.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// Pruner is implemented by stores that hold windows in process memory.
type Pruner interface {
	Prune(ctx context.Context) int
}
