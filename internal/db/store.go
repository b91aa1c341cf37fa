package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jobtracker/internal/config"
	"jobtracker/internal/store"
)

// Handles are the connections a process opened for its store.
type Handles struct {
	Store store.Store
	// Redis is nil when it is neither the driver nor reachable. Without it
	// there is no dashboard registry.
	Redis *redis.Client
	pool  *pgxpool.Pool
}

// Close releases every connection.
func (h *Handles) Close() {
	if h.Store != nil {
		_ = h.Store.Close()
	}
	if h.pool != nil {
		h.pool.Close()
	}
	if h.Redis != nil {
		_ = h.Redis.Close()
	}
}

// OpenStore connects the configured driver. Redis is also attempted for
// the other drivers, since the registry lives there; failing to reach it
// is only fatal when it is the driver.
func OpenStore(ctx context.Context, c config.StoreConfig, name string, log *slog.Logger) (*Handles, error) {
	h := &Handles{}

	if c.RedisURL != "" {
		rdb, err := NewRedisClient(ctx, c.RedisURL, name)
		switch {
		case err == nil:
			h.Redis = rdb
		case c.Driver == config.DriverRedis:
			return nil, err
		default:
			log.Warn("redis unavailable; running without the dashboard registry", "err", err)
		}
	}

	switch c.Driver {
	case config.DriverRedis:
		h.Store = store.NewRedis(h.Redis, c.KeyPrefix)
	case config.DriverPostgres:
		pool, err := NewPostgresPool(ctx, c.DatabaseURL)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.pool = pool
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			h.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		h.Store = pg
	default:
		h.Store = store.NewMemory()
	}
	return h, nil
}
