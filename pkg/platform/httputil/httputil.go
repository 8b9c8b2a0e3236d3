// Package httputil renders JSON responses and domain errors for HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	dErrors "trialgate/pkg/domain-errors"
)

// messages are the only user-visible error texts. Causes never reach the client.
var messages = map[dErrors.Code]string{
	dErrors.CodeRateLimited:         "Too many attempts. Please wait a while and try again.",
	dErrors.CodeValidation:          "Some of the details you entered are not valid. Please check them and try again.",
	dErrors.CodeExternalUnavailable: "The service is temporarily unavailable. Please try again shortly.",
	dErrors.CodeIllegalTransition:   "This step is not available right now.",
	dErrors.CodeCooldown:            "You recently used a trial. Please wait before requesting another.",
	dErrors.CodeBlocked:             "Access to the trial is not available for this account.",
	dErrors.CodeBadRequest:          "The request could not be understood.",
	dErrors.CodeUnauthorized:        "Authentication required.",
	dErrors.CodeForbidden:           "This request is not allowed for your account.",
	dErrors.CodeNotFound:            "Nothing was found for this request.",
	dErrors.CodeConflict:            "The request conflicts with the current state.",
	dErrors.CodeInternal:            "Something went wrong on our side. Please try again later.",
}

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Message returns the templated text for a code.
func Message(code dErrors.Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[dErrors.CodeInternal]
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// WriteError renders a domain error as its templated message.
// Tamper detection is reported as an internal error so it is never disclosed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeTamperDetected {
		code = dErrors.CodeInternal
	}
	WriteJSON(w, r, dErrors.HTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: Message(code),
	})
}

// WriteRateLimited renders a 429 with Retry-After when known.
func WriteRateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteError(w, r, dErrors.New(dErrors.CodeRateLimited, "rate limited"))
}

// DecodeJSON decodes a request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
