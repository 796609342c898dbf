package utils

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute
	feedVersionKey  = "feed:version"
	feedKeyPrefix   = "feed:v"
)

// RedisFeedCache stores the viewer independent feed under a generation
// numbered key. Writers never delete entries; they bump the generation so
// readers move to a fresh key and stale entries expire on their own.
type RedisFeedCache struct {
	rc *redis.Client
}

// NewRedisFeedCache returns a cache backed by rc, or nil when rc is nil.
func NewRedisFeedCache(rc *redis.Client) *RedisFeedCache {
	if rc == nil {
		return nil
	}
	return &RedisFeedCache{rc: rc}
}

// Version returns the current feed generation (0 when never bumped).
func (c *RedisFeedCache) Version(ctx context.Context) (int64, error) {
	v, err := c.rc.Get(ctx, feedVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get returns the cached bytes for the given generation.
func (c *RedisFeedCache) Get(ctx context.Context, version int64) ([]byte, bool, error) {
	b, err := c.rc.Get(ctx, feedKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		Sugar.Debugf("feed cache miss version=%d", version)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores bytes for the given generation.
func (c *RedisFeedCache) Set(ctx context.Context, version int64, b []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return c.rc.Set(ctx, feedKey(version), b, ttl).Err()
}

// Bump advances the generation after a committed mutation.
func (c *RedisFeedCache) Bump(ctx context.Context) error {
	return c.rc.Incr(ctx, feedVersionKey).Err()
}

func feedKey(version int64) string {
	return feedKeyPrefix + strconv.FormatInt(version, 10)
}
