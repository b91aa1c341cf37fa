// Package testutil connects tests to the optional Redis and PostgreSQL
// instances named by TEST_REDIS_URL and TEST_DATABASE_URL. Tests that need
// one are skipped when it is not configured or not reachable.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jobtracker/internal/db"
)

// SetupTestRedis returns a client on a flushed database.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, url, "jobtracker-test")
	if err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// SetupTestPostgres returns a pool whose tracker tables are dropped when
// the test ends.
func SetupTestPostgres(t testing.TB) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, url)
	if err != nil {
		t.Skipf("PostgreSQL not available for testing: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			`DROP TABLE IF EXISTS sync_queue, pending_extraction, mirror_records`)
		pool.Close()
	})
	return pool
}
