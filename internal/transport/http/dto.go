package httptransport

import (
	"time"

	"trialgate/internal/lifecycle"
	"trialgate/internal/trial/models"
)

type userRequest struct {
	UserID models.UserID `json:"user_id"`
}

type step1Request struct {
	UserID         models.UserID `json:"user_id"`
	DisplayName    string        `json:"display_name"`
	Country        string        `json:"country"`
	Email          string        `json:"email"`
	MarketingOptIn bool          `json:"marketing_opt_in"`
}

type phoneRequest struct {
	UserID models.UserID `json:"user_id"`
	Phone  string        `json:"phone"`
	Token  string        `json:"token"`
}

type membershipRequest struct {
	UserID  models.UserID `json:"user_id"`
	Kind    string        `json:"kind"`
	ActorID int64         `json:"actor_id"`
}

type banRequest struct {
	UserID  models.UserID `json:"user_id"`
	Reason  string        `json:"reason"`
	ActorID string        `json:"actor_id"`
}

type inviteResponse struct {
	InviteLink string    `json:"invite_link"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// StatusResponse is the status body shared by the public and internal routes.
type StatusResponse struct {
	UserID          models.UserID `json:"user_id"`
	State           models.State  `json:"state"`
	ElapsedHours    *float64      `json:"elapsed_hours"`
	RemainingHours  *float64      `json:"remaining_hours"`
	TotalHours      int           `json:"total_hours"`
	TrialEndAt      *time.Time    `json:"trial_end_at"`
	InviteLink      string        `json:"invite_link,omitempty"`
	InviteExpiresAt *time.Time    `json:"invite_expires_at"`
	CooldownEndsAt  *time.Time    `json:"cooldown_ends_at"`
	BlockReason     string        `json:"block_reason,omitempty"`
	ManualReview    bool          `json:"manual_review,omitempty"`
}

func toStatusResponse(st *lifecycle.Status, internal bool) StatusResponse {
	resp := StatusResponse{
		UserID:          st.UserID,
		State:           st.State,
		ElapsedHours:    st.ElapsedHours,
		RemainingHours:  st.RemainingHours,
		TotalHours:      st.TotalHours,
		TrialEndAt:      st.TrialEndAt,
		InviteLink:      st.InviteLink,
		InviteExpiresAt: st.InviteExpiresAt,
		CooldownEndsAt:  st.CooldownEndsAt,
	}
	if internal {
		resp.BlockReason = st.BlockReason
		resp.ManualReview = st.ManualReview
	}
	if resp.State == models.StateNone {
		resp.State = "none"
	}
	return resp
}
