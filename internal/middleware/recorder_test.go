package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// passthroughWriter stands in for wrappers such as otelhttp's that sit
// between a handler and the recorders.
type passthroughWriter struct {
	http.ResponseWriter
}

func (p passthroughWriter) Unwrap() http.ResponseWriter { return p.ResponseWriter }

func TestSetErrorCode_ThroughWrappers(t *testing.T) {
	inner := newResponseRecorder(httptest.NewRecorder())
	outer := newResponseRecorder(passthroughWriter{inner})

	SetErrorCode(passthroughWriter{outer}, "not_found")

	if outer.errorCode != "not_found" || inner.errorCode != "not_found" {
		t.Errorf("error codes = %q, %q; want not_found on both", outer.errorCode, inner.errorCode)
	}
}

func TestSetErrorCode_PlainWriter(t *testing.T) {
	// No recorder in the chain: nothing to set, nothing to panic about.
	SetErrorCode(httptest.NewRecorder(), "internal_error")
}

func TestResponseRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newResponseRecorder(rr)

	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusOK)
	n, err := rec.Write([]byte("missing"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if rec.status != http.StatusNotFound {
		t.Errorf("status = %d, want first status 404", rec.status)
	}
	if rec.bytes != int64(n) || n != len("missing") {
		t.Errorf("bytes = %d, want %d", rec.bytes, len("missing"))
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("underlying status = %d, want 404", rr.Code)
	}
}

func TestResponseRecorder_ImplicitOK(t *testing.T) {
	rec := newResponseRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("{}"))
	if rec.status != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.status)
	}
}
