package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisFeedCache_VersionedEntries(t *testing.T) {
	mr, rc := withRedis(t)
	ctx := context.Background()
	cache := NewRedisFeedCache(rc)

	v, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, ok, err := cache.Get(ctx, v)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, v, []byte(`[1]`), time.Minute))
	b, ok, err := cache.Get(ctx, v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1]`, string(b))
	assert.True(t, mr.Exists("feed:v0"))

	require.NoError(t, cache.Bump(ctx))
	next, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	_, ok, err = cache.Get(ctx, next)
	require.NoError(t, err)
	assert.False(t, ok, "a bumped generation starts empty")
}

func TestRedisFeedCache_TTL(t *testing.T) {
	mr, rc := withRedis(t)
	cache := NewRedisFeedCache(rc)

	require.NoError(t, cache.Set(context.Background(), 3, []byte("x"), 0))
	assert.Equal(t, defaultCacheTTL, mr.TTL("feed:v3"))
}

func TestRedisFeedCache_ErrorsSurface(t *testing.T) {
	mr, rc := withRedis(t)
	cache := NewRedisFeedCache(rc)
	mr.Close()

	_, err := cache.Version(context.Background())
	assert.Error(t, err)
}

func TestNewRedisFeedCache_Nil(t *testing.T) {
	assert.Nil(t, NewRedisFeedCache(nil))
}
