package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credit-assessment/internal/common/config"
)

// RedisClient backs the report cache.
type RedisClient struct {
	Client *redis.Client
	// ReportTTL is how long a cached report lives; zero leaves the cache
	// default in place.
	ReportTTL time.Duration
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	return &RedisClient{
		Client:    redis.NewClient(redisOptions(cfg)),
		ReportTTL: time.Duration(cfg.ReportTTL) * time.Second,
	}
}

// Socket deadlines stay short; report lookups fall back to SQL on any cache
// error.
func redisOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
