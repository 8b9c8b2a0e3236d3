package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"trialgate/internal/lifecycle"
	rlmodels "trialgate/internal/ratelimit/models"
	"trialgate/internal/trial/models"
	"trialgate/pkg/platform/httputil"
	"trialgate/pkg/requestcontext"
)

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := subject(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.service.Start(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, toStatusResponse(st, false))
}

// handleStep1 takes the client IP from the connection, never from the body,
// and the user from the verified launch payload.
func (h *Handler) handleStep1(w http.ResponseWriter, r *http.Request) {
	var req step1Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := subject(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.service.SubmitStep1(r.Context(), lifecycle.Step1Request{
		UserID:         userID,
		IP:             requestcontext.ClientIP(r.Context()),
		DisplayName:    req.DisplayName,
		Country:        req.Country,
		Email:          req.Email,
		MarketingOptIn: req.MarketingOptIn,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, toStatusResponse(st, false))
}

func (h *Handler) handlePhone(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := subject(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.service.SubmitPhone(r.Context(), lifecycle.PhoneRequest{
		UserID: userID,
		Phone:  req.Phone,
		Token:  req.Token,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, toStatusResponse(st, false))
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := subject(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	inv, err := h.service.RequestInvite(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, inviteResponse{InviteLink: inv.Link, ExpiresAt: inv.ExpiresAt})
}

// handlePublicStatus serves the caller's own status. A user id in the path
// must name the authenticated user.
func (h *Handler) handlePublicStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.limiter.Check(ctx, rlmodels.PolicyStatusCheck, requestcontext.ClientIP(ctx))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !res.Allowed {
		httputil.WriteRateLimited(w, r, res.RetryAfter)
		return
	}
	var claimed models.UserID
	if chi.URLParam(r, "userID") != "" {
		if claimed, err = userIDParam(r); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	userID, err := subject(ctx, claimed)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStatus(w, r, userID, false)
}

func (h *Handler) handleInternalStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStatus(w, r, userID, true)
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request, userID models.UserID, internal bool) {
	st, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, toStatusResponse(st, internal))
}
