package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrCodeRateLimited is the API error code of requests rejected by RateLimiter.
const ErrCodeRateLimited = "rate_limited"

// Limit is a fixed-window quota of Requests per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// PerMinute returns a quota of n requests per minute.
func PerMinute(n int) Limit {
	return Limit{Requests: n, Window: time.Minute}
}

// Validate reports whether the quota can be enforced.
func (l Limit) Validate() error {
	if l.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive, got %d", l.Requests)
	}
	if l.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetIn is the time until the current window closes.
	ResetIn time.Duration
}

// LimitStore counts requests per key. Take consumes one request from the
// key's current window.
type LimitStore interface {
	Take(ctx context.Context, key string, limit Limit) Decision
}

type window struct {
	count int
	ends  time.Time
}

// MemoryLimitStore is a process-local LimitStore. Run RunSweeper alongside
// it to drop expired windows.
type MemoryLimitStore struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

// NewMemoryLimitStore returns an empty in-process store.
func NewMemoryLimitStore() *MemoryLimitStore {
	return &MemoryLimitStore{windows: make(map[string]window), now: time.Now}
}

func (s *MemoryLimitStore) Take(_ context.Context, key string, limit Limit) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	win, ok := s.windows[key]
	if !ok || !now.Before(win.ends) {
		win = window{ends: now.Add(limit.Window)}
	}
	win.count++
	s.windows[key] = win

	return decide(win.count, limit, win.ends.Sub(now))
}

// Sweep drops windows that have closed.
func (s *MemoryLimitStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, win := range s.windows {
		if !now.Before(win.ends) {
			delete(s.windows, key)
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryLimitStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryLimitStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// decide turns the request count of a window into a Decision.
func decide(count int, limit Limit, resetIn time.Duration) Decision {
	if resetIn < 0 {
		resetIn = 0
	}
	remaining := limit.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= limit.Requests, Remaining: remaining, ResetIn: resetIn}
}

// KeyFunc derives the quota key of a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by client address. With trustProxyHeaders the
// first X-Forwarded-For entry, then X-Real-IP, take precedence over the
// connection address. Only enable it behind a proxy that overwrites those
// headers: otherwise any client picks its own key and escapes the quota.
func ClientIP(trustProxyHeaders bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxyHeaders {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return ip
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

// RateLimitOptions configures RateLimiter.
type RateLimitOptions struct {
	Store LimitStore
	Limit Limit
	// Key defaults to ClientIP(false).
	Key KeyFunc
	// Prefix namespaces store keys, e.g. "ratelimit:" in a shared Redis.
	Prefix  string
	Metrics *Metrics
	// Rejected writes the 429 response. It defaults to a JSON error body
	// with code rate_limited.
	Rejected http.HandlerFunc
}

// RateLimiter enforces opts.Limit per key. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset (unix
// seconds); rejected ones also carry Retry-After.
func RateLimiter(opts RateLimitOptions) func(http.Handler) http.Handler {
	key := opts.Key
	if key == nil {
		key = ClientIP(false)
	}
	rejected := opts.Rejected
	if rejected == nil {
		rejected = writeRateLimited
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := opts.Store.Take(r.Context(), opts.Prefix+key(r), opts.Limit)
			if opts.Metrics != nil {
				opts.Metrics.IncRateLimitDecision(routeOf(r.URL.Path), d.Allowed)
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(opts.Limit.Requests))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.ResetIn).Unix(), 10))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.ResetIn)))
				rejected(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry inside the window.
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func writeRateLimited(w http.ResponseWriter, _ *http.Request) {
	SetErrorCode(w, ErrCodeRateLimited)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = io.WriteString(w, `{"error":{"code":"rate_limited","message":"Too many requests"}}`+"\n")
}
