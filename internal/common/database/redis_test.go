// internal/common/database/redis_test.go
package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assessment-workers/internal/common/config"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisClient_PingSetGetDel(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	require.NoError(t, client.Set(ctx, "assessment:result:tok-1", `{"status":"scored"}`, 0))

	got, err := client.Get(ctx, "assessment:result:tok-1")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"scored"}`, got)

	require.NoError(t, client.Del(ctx, "assessment:result:tok-1"))
	_, err = client.Get(ctx, "assessment:result:tok-1")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisClient_SetHonorsTTL(t *testing.T) {
	client, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "assessment:result:tok-2", "v", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("assessment:result:tok-2"))

	mr.FastForward(2 * time.Hour)
	_, err := client.Get(ctx, "assessment:result:tok-2")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisClient_GetMissingKey(t *testing.T) {
	client, _ := newTestRedis(t)

	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, redis.Nil)
}
