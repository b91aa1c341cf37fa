package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to redisURL under the given client name and
// pings it. Pub/sub listeners hold a connection open, so the read timeout
// only applies to ordinary commands.
func NewRedisClient(ctx context.Context, redisURL, name string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ClientName = name
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
