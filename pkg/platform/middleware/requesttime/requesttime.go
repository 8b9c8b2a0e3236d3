// Package requesttime records when a request arrived.
//
// The arrival time is for logging and latency only. Business logic reads the
// clock through requestcontext.Now at the moment it needs it.
package requesttime

import (
	"net/http"
	"time"

	"trialgate/pkg/requestcontext"
)

// Middleware stores the arrival time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithReceivedAt(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
