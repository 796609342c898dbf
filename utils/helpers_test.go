package utils

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cppla/postwall/config"
)

func init() {
	config.Set(config.AppConfig{JWTSecret: "unit-test-secret", DBDriver: "sqlite", MaxImageBytes: 1 << 20})
}

// withRedis points the shared client at a fresh miniredis for one test.
func withRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(rc)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = rc.Close()
		mr.Close()
	})
	return mr, rc
}

// withoutRedis forces the in-memory fallbacks.
func withoutRedis(t *testing.T) {
	t.Helper()
	SetRedis(nil)
}
