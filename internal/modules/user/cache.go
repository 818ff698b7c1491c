// README: Redis read-through cache for credential lookups (external id -> user).
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "rides:user:ext:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(externalID string) string {
	return cacheKeyPrefix + externalID
}

func (c *RedisCache) Get(ctx context.Context, externalID string) (*User, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, false, fmt.Errorf("decode cached user: %w", err)
	}
	return &u, true, nil
}

// Set stores u without its password hash (the json tag drops it).
func (c *RedisCache) Set(ctx context.Context, u *User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return c.client.Set(ctx, cacheKey(u.ExternalID), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, externalID string) error {
	return c.client.Del(ctx, cacheKey(externalID)).Err()
}
