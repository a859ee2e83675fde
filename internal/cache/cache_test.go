package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "policy")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "policy", `{"min":"1.0"}`, time.Minute))
	v, err := c.Get(ctx, "policy")
	require.NoError(t, err)
	assert.Equal(t, `{"min":"1.0"}`, v)

	require.NoError(t, c.Delete(ctx, "policy"))
	_, err = c.Get(ctx, "policy")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Ping(ctx))
}

func TestMemoryClient(t *testing.T) {
	c := NewMemory("lg")
	defer c.Close()
	exerciseClient(t, c)
}

func TestRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), Config{Driver: "redis", Addr: mr.Addr(), Prefix: "lg"})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Second))
	assert.True(t, mr.Exists("lg:k"))
	mr.FastForward(2 * time.Second)
	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisClient_Shared(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisFromClient(rdb, "")
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{Driver: "redis", Addr: addr})
	assert.Error(t, err)
}
