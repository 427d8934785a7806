package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name  string   `json:"name"`
	Paths []string `json:"paths"`
}

// failingCache always errors, to exercise fail-open behavior.
type failingCache struct {
	sets int
}

func (f *failingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("cache unavailable")
}

func (f *failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.sets++
	return errors.New("cache unavailable")
}

// TestMemoryCache_GetSet tests basic storage and misses.
func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "missing"); found || err != nil {
		t.Errorf("expected miss without error, got found=%v err=%v", found, err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, found, err := c.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if string(data) != "v" {
		t.Errorf("expected v, got %s", data)
	}
}

// TestMemoryCache_Expiry tests that entries expire after their TTL.
func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("expected entry to expire")
	}
}

// TestMemoize_CachesWithinTTL calls fn once while the entry is fresh.
func TestMemoize_CachesWithinTTL(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "acme", Paths: []string{"/tools/acme"}}, nil
	}

	first, hit, err := Memoize(ctx, c, "links:tool:acme", time.Minute, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("expected first call to miss")
	}

	second, hit, err := Memoize(ctx, c, "links:tool:acme", time.Minute, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Error("expected second call to hit")
	}
	if calls != 1 {
		t.Errorf("expected fn to be called once, got %d", calls)
	}
	if second.Name != first.Name || len(second.Paths) != 1 || second.Paths[0] != "/tools/acme" {
		t.Errorf("cached value differs: %+v vs %+v", second, first)
	}
}

// TestMemoize_RecomputesAfterExpiry calls fn again once the TTL elapses.
func TestMemoize_RecomputesAfterExpiry(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if _, _, err := Memoize(ctx, c, "k", 20*time.Millisecond, fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	v, hit, err := Memoize(ctx, c, "k", 20*time.Millisecond, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit || v != 2 {
		t.Errorf("expected recomputed value 2, got %d (hit=%v)", v, hit)
	}
}

// TestMemoize_KeysIndependent keeps entries separate per key.
func TestMemoize_KeysIndependent(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	a, _, _ := Memoize(ctx, c, "a", time.Minute, func(context.Context) (string, error) { return "A", nil })
	b, _, _ := Memoize(ctx, c, "b", time.Minute, func(context.Context) (string, error) { return "B", nil })
	if a != "A" || b != "B" {
		t.Errorf("expected A and B, got %s and %s", a, b)
	}
}

// TestMemoize_ErrorsNotCached retries fn after a failure.
func TestMemoize_ErrorsNotCached(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	fnErr := errors.New("db down")
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, fnErr
		}
		return 7, nil
	}

	if _, _, err := Memoize(ctx, c, "k", time.Minute, fn); !errors.Is(err, fnErr) {
		t.Fatalf("expected fn error, got %v", err)
	}
	v, hit, err := Memoize(ctx, c, "k", time.Minute, fn)
	if err != nil || hit || v != 7 {
		t.Errorf("expected fresh value 7, got %d hit=%v err=%v", v, hit, err)
	}
	if c.ItemCount() != 1 {
		t.Errorf("expected only the successful value cached, got %d entries", c.ItemCount())
	}
}

// TestMemoize_FailsOpen computes the value when the cache backend errors.
func TestMemoize_FailsOpen(t *testing.T) {
	fc := &failingCache{}
	v, hit, err := Memoize(context.Background(), fc, "k", time.Minute, func(context.Context) (string, error) {
		return "computed", nil
	})
	if err != nil {
		t.Fatalf("expected no error when cache fails, got %v", err)
	}
	if hit || v != "computed" {
		t.Errorf("expected computed value, got %q hit=%v", v, hit)
	}
	if fc.sets != 1 {
		t.Errorf("expected one write attempt, got %d", fc.sets)
	}
}

// TestMemoize_NilCache calls fn directly.
func TestMemoize_NilCache(t *testing.T) {
	v, hit, err := Memoize(context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) {
		return 3, nil
	})
	if err != nil || hit || v != 3 {
		t.Errorf("expected 3 without hit, got %d hit=%v err=%v", v, hit, err)
	}
}

// TestMemoize_CorruptEntry recomputes when the stored bytes do not decode.
func TestMemoize_CorruptEntry(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("{broken"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, hit, err := Memoize(ctx, c, "k", time.Minute, func(context.Context) (payload, error) {
		return payload{Name: "fresh"}, nil
	})
	if err != nil || hit || v.Name != "fresh" {
		t.Errorf("expected fresh value, got %+v hit=%v err=%v", v, hit, err)
	}
}
