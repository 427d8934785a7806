// Package health checks the external dependencies behind /ready: the
// Postgres catalog and the Redis instance shared by the link cache and the
// rate limiter.
package health

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// schemaQuery fails until the catalog migrations have run.
const schemaQuery = `SELECT 1 FROM tools LIMIT 1`

type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck fails when Postgres is unreachable or the catalog schema is
// missing. An empty catalog passes.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, schemaQuery)
	if err != nil {
		return fmt.Errorf("catalog schema check failed: %w", err)
	}
	return rows.Close()
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
