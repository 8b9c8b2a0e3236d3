package httptransport

import (
	"context"
	"net/http"
	"strings"

	"trialgate/internal/identity"
	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/requestcontext"
)

const (
	// HeaderInitData carries the raw mini app launch payload.
	HeaderInitData = "X-Telegram-Init-Data"
	authScheme     = "tma "
)

// Authenticator verifies the launch payload sent with every public form call.
type Authenticator interface {
	Validate(ctx context.Context, raw string) (*identity.InitData, error)
}

type authUserKey struct{}

// requireUser rejects requests without a valid launch payload and stores the
// verified user id in the context.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		data, err := h.auth.Validate(ctx, initDataFrom(r))
		if err != nil {
			h.logger.WarnContext(ctx, "unauthenticated request",
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", requestcontext.ClientIP(ctx),
				"path", r.URL.Path,
			)
			h.writeError(w, r, err)
			return
		}
		ctx = context.WithValue(ctx, authUserKey{}, data.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// initDataFrom reads the payload from its header or from "Authorization: tma <payload>".
func initDataFrom(r *http.Request) string {
	if raw := r.Header.Get(HeaderInitData); raw != "" {
		return raw
	}
	if v := r.Header.Get("Authorization"); len(v) > len(authScheme) && strings.EqualFold(v[:len(authScheme)], authScheme) {
		return strings.TrimSpace(v[len(authScheme):])
	}
	return ""
}

// subject returns the authenticated user. A user id named by the client must
// match it.
func subject(ctx context.Context, claimed models.UserID) (models.UserID, error) {
	userID, ok := ctx.Value(authUserKey{}).(models.UserID)
	if !ok {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user")
	}
	if claimed != 0 && claimed != userID {
		return 0, dErrors.New(dErrors.CodeForbidden, "user id does not match the authenticated user")
	}
	return userID, nil
}
