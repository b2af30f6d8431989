package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisStateCache shares pending-connect markers between instances.
type RedisStateCache struct {
	client *redis.Client
}

// NewRedisStateCache connects to redisURL and verifies the connection.
func NewRedisStateCache(ctx context.Context, redisURL string) (*RedisStateCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("Redis state cache connected", "addr", opts.Addr, "db", opts.DB)
	return &RedisStateCache{client: client}, nil
}

// NewRedisStateCacheFromClient wraps an existing client.
func NewRedisStateCacheFromClient(client *redis.Client) *RedisStateCache {
	return &RedisStateCache{client: client}
}

func (r *RedisStateCache) Issue(ctx context.Context, provider, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, stateKey(provider, userID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("issue state: %w", err)
	}
	return nil
}

func (r *RedisStateCache) Consume(ctx context.Context, provider, userID string) (bool, error) {
	_, err := r.client.GetDel(ctx, stateKey(provider, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}
	return true, nil
}

// Close releases the underlying connection pool.
func (r *RedisStateCache) Close() error {
	return r.client.Close()
}
