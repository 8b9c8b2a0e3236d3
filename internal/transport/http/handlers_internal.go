package httptransport

import (
	"net/http"
	"strings"

	"trialgate/internal/lifecycle"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/httputil"
)

// handleMembership accepts join and leave events from the channel transport.
func (h *Handler) handleMembership(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	kind := lifecycle.MembershipKind(strings.ToLower(req.Kind))
	if kind != lifecycle.MembershipJoin && kind != lifecycle.MembershipLeave {
		h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "kind must be join or leave"))
		return
	}
	err := h.service.HandleMembership(r.Context(), lifecycle.MembershipEvent{
		UserID:  req.UserID,
		Kind:    kind,
		ActorID: req.ActorID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID <= 0 {
		h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "user id is required"))
		return
	}
	if err := h.service.Ban(r.Context(), req.UserID, req.Reason, req.ActorID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnban(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.service.Unban(r.Context(), userID, r.URL.Query().Get("actor_id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
