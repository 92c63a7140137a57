package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/coach-lineup-api/pkg/config"
)

// NewRedis returns a configured Redis client, or nil when caching is disabled.
// The app runs fine without Redis so callers must tolerate a nil client.
func NewRedis(cacheCfg config.CacheConfig, cfg config.RedisConfig) (*redis.Client, error) {
	if !cacheCfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
