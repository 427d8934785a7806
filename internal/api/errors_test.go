package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/findaly/findaly/internal/middleware"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not the JSON envelope: %v: %s", err, rr.Body.String())
	}
	return resp.Error
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		status  int
		code    string
		message string
	}{
		{http.StatusBadRequest, ErrCodeValidation, "Invalid tool slug"},
		{http.StatusNotFound, ErrCodeNotFound, "Tool not found"},
		{http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests"},
		{http.StatusInternalServerError, ErrCodeInternal, "Failed to load links"},
		{http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed"},
		{http.StatusInternalServerError, ErrCodeInternal, ""},
		{http.StatusBadRequest, ErrCodeValidation, `slug "<a&b>" has "quotes" and ünïcode`},
	}

	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.message, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, httptest.NewRequest(http.MethodGet, "/links/tools/acme", nil), tt.status, tt.code, tt.message)

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			got := decodeError(t, rr)
			if got.Code != tt.code || got.Message != tt.message {
				t.Errorf("error = %+v, want {%s %q}", got, tt.code, tt.message)
			}
		})
	}
}

func TestWriteError_CodeReachesRequestLog(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := middleware.RequestID(middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Tool not found")
	})))

	req := httptest.NewRequest(http.MethodGet, "/tools/ghost/alternatives", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-404")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &rec); err != nil {
		t.Fatalf("invalid log line: %v: %s", err, logs.String())
	}
	if rec["error_code"] != ErrCodeNotFound {
		t.Errorf("error_code = %v, want %s", rec["error_code"], ErrCodeNotFound)
	}
	if rec["request_id"] != "req-404" {
		t.Errorf("request_id = %v, want req-404", rec["request_id"])
	}
	if rr.Header().Get(middleware.RequestIDHeader) != "req-404" {
		t.Error("request ID header missing from error response")
	}
}

func TestRateLimited(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	handler := middleware.Logging(logger)(middleware.RateLimiter(middleware.RateLimitOptions{
		Store:    middleware.NewMemoryLimitStore(),
		Limit:    middleware.PerMinute(1),
		Rejected: RateLimited,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"ok": "yes"})
	})))

	var rr *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/links/best/crm-tools-for-startups", nil))
	}

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if got := decodeError(t, rr); got.Code != ErrCodeRateLimited || got.Message == "" {
		t.Errorf("error = %+v", got)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if !strings.Contains(logs.String(), "error_code=rate_limited") {
		t.Errorf("log missing rate_limited code:\n%s", logs.String())
	}
}
