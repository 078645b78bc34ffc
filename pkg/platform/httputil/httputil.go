// Package httputil centralizes JSON response writing and domain error
// translation so handlers stay thin and error envelopes stay consistent.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "address-cri/pkg/domain-errors"
	"address-cri/pkg/requestcontext"
)

// errorBody is the wire envelope for all error responses.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeExpired:            http.StatusForbidden,
	dErrors.CodeInvalidState:       http.StatusConflict,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeTimeout:            http.StatusBadGateway,
	dErrors.CodeUnavailable:        http.StatusBadGateway,
	dErrors.CodeInternal:           http.StatusInternalServerError,
	dErrors.CodeInvariantViolation: http.StatusInternalServerError,
}

var wireNameByCode = map[dErrors.Code]string{
	dErrors.CodeValidation:         "validation_error",
	dErrors.CodeBadRequest:         "bad_request",
	dErrors.CodeNotFound:           "not_found",
	dErrors.CodeConflict:           "conflict",
	dErrors.CodeExpired:            "session_expired",
	dErrors.CodeInvalidState:       "invalid_session_state",
	dErrors.CodeUnauthorized:       "unauthorized",
	dErrors.CodeForbidden:          "forbidden",
	dErrors.CodeTimeout:            "upstream_timeout",
	dErrors.CodeUnavailable:        "upstream_error",
	dErrors.CodeInternal:           "internal_error",
	dErrors.CodeInvariantViolation: "internal_error",
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and wire envelope.
// Server-side failures (5xx) never expose their description to the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := errorBody{Error: wireNameByCode[code]}
	if body.Error == "" {
		body.Error = "internal_error"
	}
	if status < http.StatusInternalServerError {
		body.ErrorDescription = err.Error()
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into T, logging and writing a
// bad_request envelope on failure. The boolean result tells the handler
// whether to continue.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if logger != nil {
			ctx := r.Context()
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		var zero T
		return zero, false
	}
	return v, true
}
