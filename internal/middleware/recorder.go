package middleware

import "net/http"

// responseRecorder captures what a handler wrote so logging and metrics can
// report it after the handler returns. Only the first status is kept, as
// net/http only sends the first one.
type responseRecorder struct {
	http.ResponseWriter
	status    int
	bytes     int64
	errorCode string
	wrote     bool
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *responseRecorder) WriteHeader(status int) {
	if rec.wrote {
		return
	}
	rec.status = status
	rec.wrote = true
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	rec.wrote = true
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

func (rec *responseRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// SetErrorCode attaches an API error code to the response so the request
// log carries it. It walks the Unwrap chain, so any wrapper between the
// handler and the recorders is fine. Writers outside the chain are ignored.
func SetErrorCode(w http.ResponseWriter, code string) {
	for w != nil {
		if rec, ok := w.(*responseRecorder); ok {
			rec.errorCode = code
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return
		}
		w = u.Unwrap()
	}
}
