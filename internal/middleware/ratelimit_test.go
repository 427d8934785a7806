package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeClock drives a MemoryLimitStore without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedStore() (*MemoryLimitStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryLimitStore()
	store.now = clock.Now
	return store, clock
}

func TestLimit_Validate(t *testing.T) {
	tests := []struct {
		name    string
		limit   Limit
		wantErr bool
	}{
		{"per minute", PerMinute(60), false},
		{"zero requests", Limit{Requests: 0, Window: time.Minute}, true},
		{"negative requests", Limit{Requests: -1, Window: time.Minute}, true},
		{"zero window", Limit{Requests: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.limit.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemoryLimitStore_Window(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()
	limit := PerMinute(3)

	for i := 1; i <= 3; i++ {
		d := store.Take(ctx, "ratelimit:10.0.0.1", limit)
		if !d.Allowed || d.Remaining != 3-i {
			t.Fatalf("request %d: %+v, want allowed with %d remaining", i, d, 3-i)
		}
	}

	clock.Advance(20 * time.Second)
	d := store.Take(ctx, "ratelimit:10.0.0.1", limit)
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("fourth request: %+v, want blocked", d)
	}
	if d.ResetIn != 40*time.Second {
		t.Errorf("ResetIn = %v, want 40s", d.ResetIn)
	}

	// Other keys have their own window.
	if d := store.Take(ctx, "ratelimit:10.0.0.2", limit); !d.Allowed {
		t.Error("second client should not share the quota")
	}

	clock.Advance(40 * time.Second)
	if d := store.Take(ctx, "ratelimit:10.0.0.1", limit); !d.Allowed || d.Remaining != 2 {
		t.Errorf("after window: %+v, want fresh window", d)
	}
}

func TestMemoryLimitStore_Sweep(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	store.Take(ctx, "old", Limit{Requests: 5, Window: time.Minute})
	clock.Advance(30 * time.Second)
	store.Take(ctx, "new", Limit{Requests: 5, Window: time.Minute})
	clock.Advance(30 * time.Second)

	store.Sweep()
	if got := store.size(); got != 1 {
		t.Errorf("size after sweep = %d, want 1", got)
	}
}

func TestMemoryLimitStore_RunSweeperStops(t *testing.T) {
	store := NewMemoryLimitStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not return after cancel")
	}
}

func TestMemoryLimitStore_Concurrent(t *testing.T) {
	store := NewMemoryLimitStore()
	limit := PerMinute(100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Take(context.Background(), "shared", limit).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want exactly 100", allowed)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trust   bool
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", false, "203.0.113.7:5123", nil, "203.0.113.7"},
		{"forwarded ignored by default", false, "203.0.113.7:5123",
			map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"real ip ignored by default", false, "203.0.113.7:5123",
			map[string]string{"X-Real-IP": "198.51.100.2"}, "203.0.113.7"},
		{"first forwarded entry when trusted", true, "10.0.0.1:80",
			map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"}, "198.51.100.1"},
		{"real ip when trusted", true, "10.0.0.1:80",
			map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"forwarded wins over real ip", true, "10.0.0.1:80",
			map[string]string{"X-Forwarded-For": "198.51.100.1", "X-Real-IP": "198.51.100.2"}, "198.51.100.1"},
		{"blank forwarded falls back", true, "10.0.0.1:80",
			map[string]string{"X-Forwarded-For": " , 10.0.0.9"}, "10.0.0.1"},
		{"ipv6 remote", false, "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"remote without port", false, "unix-socket", nil, "unix-socket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/links/tools/acme", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(tt.trust)(req); got != tt.want {
				t.Errorf("ClientIP(%v) = %q, want %q", tt.trust, got, tt.want)
			}
		})
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	store, _ := newClockedStore()
	metrics := NewMetrics()
	handler := RateLimiter(RateLimitOptions{
		Store:   store,
		Limit:   PerMinute(2),
		Prefix:  "ratelimit:",
		Metrics: metrics,
	})(okHandler())

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/links/tools/acme", nil)
		req.RemoteAddr = "203.0.113.7:5123"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i, wantRemaining := range []string{"1", "0"} {
		rr := serve()
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d: remaining %s, want %s", i+1, got, wantRemaining)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("limit header = %s, want 2", got)
		}
	}

	rr := serve()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("429 body is not JSON: %v: %s", err, rr.Body.String())
	}
	if body.Error.Code != ErrCodeRateLimited || body.Error.Message == "" {
		t.Errorf("error = %+v, want code %s with a message", body.Error, ErrCodeRateLimited)
	}
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("Retry-After = %q, want 1..60", rr.Header().Get("Retry-After"))
	}
	if rr.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset missing")
	}

	if store.size() != 1 {
		t.Errorf("store keys = %d, want 1", store.size())
	}
	if d := store.Take(context.Background(), "ratelimit:203.0.113.7", PerMinute(2)); d.Allowed {
		t.Error("store key should carry the prefix")
	}

	route := "/links/tools/{slug}"
	if got := testutil.ToFloat64(metrics.decisions.WithLabelValues(route, DecisionAllowed)); got != 2 {
		t.Errorf("allowed decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.decisions.WithLabelValues(route, DecisionBlocked)); got != 1 {
		t.Errorf("blocked decisions = %v, want 1", got)
	}
}

func TestRateLimiter_CustomRejected(t *testing.T) {
	called := false
	handler := RateLimiter(RateLimitOptions{
		Store: NewMemoryLimitStore(),
		Limit: PerMinute(1),
		Key:   func(*http.Request) string { return "everyone" },
		Rejected: func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTooManyRequests)
		},
	})(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/links/categories/crm", nil)
		req.RemoteAddr = "198.51.100." + strconv.Itoa(i+1) + ":1000"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if !called {
		t.Error("custom Rejected handler was not used")
	}
}

func TestRateLimiter_SpoofedForwardedForSharesQuota(t *testing.T) {
	handler := RateLimiter(RateLimitOptions{
		Store: NewMemoryLimitStore(),
		Limit: PerMinute(1),
		Key:   ClientIP(false),
	})(okHandler())

	codes := make([]int, 0, 2)
	for _, fwd := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodGet, "/links/tools/acme", nil)
		req.RemoteAddr = "203.0.113.7:5123"
		req.Header.Set("X-Forwarded-For", fwd)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want the second request limited", codes)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
