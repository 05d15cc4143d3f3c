package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "cloudops:forecast:acct-1:3", Key("forecast", "acct-1", "3"))
	assert.Equal(t, "cloudops", Key())
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	c, err := New(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func redisConfigFromEnv() config.RedisConfig {
	cfg := config.RedisConfig{Enabled: true, Host: "localhost", Port: 6379}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("REDIS_PORT")); err == nil {
		cfg.Port = port
	}
	return cfg
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c, err := NewRedis(redisConfigFromEnv())
	if err != nil {
		t.Skip("Redis not available, skipping test")
	}
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	key := Key("test", strconv.FormatInt(time.Now().UnixNano(), 10))
	defer func() { _ = c.Delete(ctx, key) }()

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	require.NoError(t, c.Set(ctx, key, payload{Name: "forecast", Value: 3060}, time.Minute))

	var got payload
	found, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "forecast", Value: 3060}, got)

	require.NoError(t, c.Delete(ctx, key))
	found, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}
