package middleware

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisLimitStore shares quotas between API replicas. Each key is an INCR
// counter whose expiry is the window; the first request of a window sets it.
//
// When Redis fails the request is allowed and counted as a store error, so
// a Redis outage degrades to no rate limiting rather than no service.
type RedisLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisLimitStore returns a store backed by client.
func NewRedisLimitStore(client *redis.Client) *RedisLimitStore {
	return &RedisLimitStore{client: client}
}

// WithMetrics counts store failures on m.
func (s *RedisLimitStore) WithMetrics(m *Metrics) *RedisLimitStore {
	s.metrics = m
	return s
}

func (s *RedisLimitStore) Take(ctx context.Context, key string, limit Limit) Decision {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.failOpen(limit)
	}

	count := int(incr.Val())
	resetIn := ttl.Val()
	// A negative TTL means the key has no expiry yet: this request opened
	// the window, or an earlier PExpire was lost.
	if resetIn < 0 {
		if err := s.client.PExpire(ctx, key, limit.Window).Err(); err != nil {
			return s.failOpen(limit)
		}
		resetIn = limit.Window
	}
	return decide(count, limit, resetIn)
}

func (s *RedisLimitStore) failOpen(limit Limit) Decision {
	if s.metrics != nil {
		s.metrics.IncRateLimitStoreErrors()
	}
	return Decision{Allowed: true, Remaining: limit.Requests}
}
