// Package api holds the HTTP handlers of the link engine and the JSON error
// envelope they share.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/findaly/findaly/internal/middleware"
)

// Error codes of the {"error":{"code","message"}} envelope.
const (
	ErrCodeValidation  = "validation_error"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = middleware.ErrCodeRateLimited
	ErrCodeInternal    = "internal_error"
	ErrCodeBadRequest  = "bad_request"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the JSON error envelope and records code for the
// request log.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	middleware.SetErrorCode(w, code)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	body := ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", err, "code", code)
	}
}

// RateLimited answers requests rejected by the rate limiter.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests, retry after the Retry-After delay")
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// requireGET writes a 405 error and returns false unless r is a GET or HEAD.
func requireGET(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	return false
}
