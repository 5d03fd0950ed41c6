package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeySetKey is the Redis key used when none is configured
const DefaultRedisKeySetKey = "coffee-shop:jwks"

// RedisKeySetCache shares the fetched key set between service replicas
type RedisKeySetCache struct {
	client redis.Cmdable
	key    string
}

// NewRedisKeySetCache creates a cache storing the key set under key
func NewRedisKeySetCache(client redis.Cmdable, key string) *RedisKeySetCache {
	if key == "" {
		key = DefaultRedisKeySetKey
	}
	return &RedisKeySetCache{
		client: client,
		key:    key,
	}
}

// Get loads the key set, returning (nil, nil) when the key is absent
func (c *RedisKeySetCache) Get(ctx context.Context) (*KeySet, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read jwks from redis: %w", err)
	}

	var keySet KeySet
	if err := json.Unmarshal(data, &keySet); err != nil {
		return nil, fmt.Errorf("failed to decode cached jwks: %w", err)
	}
	return &keySet, nil
}

// Set stores the key set with the given expiry
func (c *RedisKeySetCache) Set(ctx context.Context, keySet *KeySet, ttl time.Duration) error {
	data, err := json.Marshal(keySet)
	if err != nil {
		return fmt.Errorf("failed to encode jwks: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write jwks to redis: %w", err)
	}
	return nil
}

// Invalidate deletes the cached key set
func (c *RedisKeySetCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to delete jwks from redis: %w", err)
	}
	return nil
}
