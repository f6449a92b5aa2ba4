package photo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"licensing/pkg/requestcontext"
)

const cacheKeyPrefix = "photo:"

// cacheClient is the subset of the go-redis client the cache uses.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a read-through cache in front of another Source. Cache
// errors are logged and bypassed; they never fail a fetch.
type RedisCache struct {
	client cacheClient
	next   Source
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client cacheClient, next Source, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, next: next, ttl: ttl, logger: logger}
}

func cacheKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Fetch(ctx context.Context, ref string) ([]byte, error) {
	key := cacheKey(ref)
	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.warn(ctx, "photo cache read failed", ref, err)
	}

	body, err := c.next.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.warn(ctx, "photo cache write failed", ref, err)
	}
	return body, nil
}

func (c *RedisCache) warn(ctx context.Context, msg, ref string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"photo_ref", ref,
		"error", err,
	)
}
