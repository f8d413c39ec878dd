// Package redis builds the shared client used by the notification stream and
// the live-update pub/sub channels.
package redis

import (
	"context"
	"fmt"
	"time"

	"tradebidz-core-service/internal/config"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// NewClient creates the Redis client and verifies connectivity before anyone
// publishes on it. Pub/sub connections are taken out of the pool and held for
// the life of a WebSocket client, so the pool is sized above the default.
func NewClient(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}
	return rdb, nil
}
