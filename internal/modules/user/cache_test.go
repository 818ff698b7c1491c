package user

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimoreirac/pi-tercero/internal/types"
)

func openRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("RIDES_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RIDES_TEST_REDIS_ADDR not set; skipping redis tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache := NewRedisCache(openRedis(t), time.Minute)
	ctx := context.Background()

	hash := "$2a$04$secret"
	u := &User{
		ID:           types.ID(uuid.NewString()),
		ExternalID:   "firebase:" + uuid.NewString(),
		Email:        "ana@example.com",
		Name:         "Ana",
		PasswordHash: &hash,
	}

	_, ok, err := cache.Get(ctx, u.ExternalID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, u))
	got, ok, err := cache.Get(ctx, u.ExternalID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.Nil(t, got.PasswordHash)

	require.NoError(t, cache.Delete(ctx, u.ExternalID))
	_, ok, err = cache.Get(ctx, u.ExternalID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Expires(t *testing.T) {
	cache := NewRedisCache(openRedis(t), time.Second)
	ctx := context.Background()

	u := &User{ID: types.ID(uuid.NewString()), ExternalID: "test:" + uuid.NewString(), Email: "x@example.com", Name: "X"}
	require.NoError(t, cache.Set(ctx, u))

	ttl, err := cache.client.TTL(ctx, cacheKey(u.ExternalID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Second)
}
