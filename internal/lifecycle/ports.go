package lifecycle

import (
	"context"
	"time"

	rlmodels "trialgate/internal/ratelimit/models"
	"trialgate/internal/trial/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// Transport manages access to the trial channel.
type Transport interface {
	CreateInvite(ctx context.Context, userID models.UserID, expiresAt time.Time) (string, error)
	RemoveMember(ctx context.Context, userID models.UserID) error
}

// Reputation classifies a client IP.
type Reputation interface {
	Lookup(ctx context.Context, ip string) (*models.IPReputation, error)
}

// IdentityVerifier checks a signed identity token.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*models.IdentityClaims, error)
}

// Notifier delivers outbound notification requests.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// JobScheduler holds time-based jobs. Scheduling an existing id replaces it.
type JobScheduler interface {
	Schedule(job models.Job)
	Cancel(id string)
}

// Limiter applies a rate-limit policy to a subject.
type Limiter interface {
	Check(ctx context.Context, policy rlmodels.Policy, subject string) (*rlmodels.RateLimitResult, error)
}
