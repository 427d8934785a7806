// Package middleware holds the HTTP middleware chain of the link engine:
// request IDs, structured request logs, Prometheus metrics, rate limiting
// and OpenTelemetry server spans.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/findaly/findaly/internal/validate"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds caller-supplied IDs; a UUID is 36 characters.
const maxRequestIDLength = 128

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type requestIDKey struct{}

// RequestID tags every request with an ID. A well-formed X-Request-ID from
// the caller is kept so IDs can follow a request across services; anything
// else is replaced by a fresh UUID before it reaches headers or logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func validRequestID(id string) bool {
	_, err := validate.String(id, validate.StringConstraints{
		MinLength:      1,
		MaxLength:      maxRequestIDLength,
		AllowedPattern: requestIDPattern,
	})
	return err == nil
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
