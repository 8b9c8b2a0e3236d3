// Package device inspects the client's User-Agent.
package device

import (
	"log/slog"
	"net/http"

	"github.com/mssola/useragent"

	"trialgate/pkg/requestcontext"
)

// IsBot reports whether ua looks like an automated client. An empty UA counts as a bot.
func IsBot(ua string) bool {
	if ua == "" {
		return true
	}
	return useragent.New(ua).Bot()
}

// RejectBots refuses form submissions from crawler and script user agents.
func RejectBots(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := r.Header.Get("User-Agent")
			if IsBot(ua) {
				logger.InfoContext(r.Context(), "rejected automated client",
					"request_id", requestcontext.RequestID(r.Context()),
					"user_agent", ua,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"access_blocked","message":"Access to the trial is not available for this account."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
