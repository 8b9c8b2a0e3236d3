// Package secret guards service-to-service routes with a shared secret header.
package secret

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"trialgate/pkg/platform/privacy"
	"trialgate/pkg/requestcontext"
)

const HeaderAPISecret = "X-API-Secret"

// MinLength is the shortest secret the server accepts at startup.
const MinLength = 32

// RequireSharedSecret rejects requests whose X-API-Secret header is missing
// or differs from expected. There is no fail-open path.
func RequireSharedSecret(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(HeaderAPISecret)
			// constant-time comparison; an empty expected secret never matches
			if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "shared secret mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
					"header_present", provided != "",
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Authentication required."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
