// Package store defines persistence for trial records.
//
// Stores are pure I/O: lifecycle rules live in the lifecycle service. Lookups
// of missing records return sentinel.ErrNotFound (wrapped). Multi-record
// writes (StartTrial, FinalizeTrial) are atomic.
package store

import (
	"context"
	"errors"
	"time"

	"trialgate/internal/trial/models"
	"trialgate/pkg/platform/sentinel"
)

//go:generate mockgen -source=store.go -destination=../../lifecycle/mocks/store_mock.go -package=mocks

// PendingStore persists PendingVerification records.
type PendingStore interface {
	GetPending(ctx context.Context, id models.UserID) (*models.PendingVerification, error)
	// UpdatePending runs fn against the current record, or a fresh one carrying
	// only UserID when none exists, and saves the result. An error from fn
	// aborts the write.
	UpdatePending(ctx context.Context, id models.UserID, fn func(p *models.PendingVerification) error) (*models.PendingVerification, error)
	DeletePending(ctx context.Context, id models.UserID) error
	// DeleteStalePending removes non-terminal records last updated before cutoff.
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int, error)
}

// TrialStore persists ActiveTrial and UsedTrial records.
type TrialStore interface {
	GetActive(ctx context.Context, id models.UserID) (*models.ActiveTrial, error)
	ListActive(ctx context.Context) ([]*models.ActiveTrial, error)
	// StartTrial inserts the active trial and clears the user's pending record
	// and invite. Returns sentinel.ErrConflict if a trial is already active.
	StartTrial(ctx context.Context, trial *models.ActiveTrial) error
	// FinalizeTrial appends used and deletes the user's active trial.
	FinalizeTrial(ctx context.Context, used *models.UsedTrial) error
	AppendUsed(ctx context.Context, used *models.UsedTrial) error
	// ListUsed returns the user's used trials, newest first.
	ListUsed(ctx context.Context, id models.UserID) ([]*models.UsedTrial, error)
	ListRemovalPending(ctx context.Context) ([]*models.UsedTrial, error)
	ClearRemovalPending(ctx context.Context, usedID int64) error
}

// InviteStore persists Invite records, at most one per user.
type InviteStore interface {
	GetInvite(ctx context.Context, id models.UserID) (*models.Invite, error)
	SaveInvite(ctx context.Context, invite *models.Invite) error
	DeleteInvite(ctx context.Context, id models.UserID) error
	DeleteExpiredInvites(ctx context.Context, now time.Time) (int, error)
}

// BanStore persists operator bans.
type BanStore interface {
	GetBan(ctx context.Context, id models.UserID) (*models.Ban, error)
	SaveBan(ctx context.Context, ban *models.Ban) error
	DeleteBan(ctx context.Context, id models.UserID) error
}

// Store is the full record store.
type Store interface {
	PendingStore
	TrialStore
	InviteStore
	BanStore
}

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
