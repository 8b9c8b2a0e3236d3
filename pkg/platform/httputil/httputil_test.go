package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "trialgate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error hides cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(w, r, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		if strings.Contains(w.Body.String(), "connection refused") {
			t.Fatalf("expected cause to be hidden, got %s", w.Body.String())
		}
	})

	t.Run("tamper is reported as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(w, r, dErrors.New(dErrors.CodeTamperDetected, "record mismatch"))

		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Error != string(dErrors.CodeInternal) {
			t.Fatalf("expected internal_error, got %q", body.Error)
		}
	})

	t.Run("rate limited carries retry after", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		WriteRateLimited(w, r, 42)

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
		}
		if got := w.Header().Get("Retry-After"); got != "42" {
			t.Fatalf("expected Retry-After 42, got %q", got)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Message != Message(dErrors.CodeRateLimited) {
			t.Fatalf("unexpected message %q", body.Message)
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		UserID int64 `json:"user_id"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id": 7, "extra": true}`))
	err := DecodeJSON(r, &dst)
	if !dErrors.Is(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad_request for unknown field, got %v", err)
	}
}
