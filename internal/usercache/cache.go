// Package usercache is the read-through cache that resolves an authenticated
// identity to its user record without hitting the primary store on every
// request. Entries live under user:<email> with a fixed TTL counted from
// write time; reads do not extend it, so staleness is bounded by the TTL.
package usercache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"contactsss/internal/metrics"
	"contactsss/internal/model"
)

// DefaultTTL bounds how stale a cached user snapshot may be.
const DefaultTTL = 900 * time.Second

// ErrRedisUnavailable wraps cache-backend failures on paths that cannot
// degrade to the backing store.
var ErrRedisUnavailable = errors.New("user cache backend unavailable")

const keyPrefix = "user:"

// LoadFunc loads the source-of-truth record on a cache miss.
type LoadFunc func(ctx context.Context, email string) (*model.User, error)

// Cache is the Redis-backed user snapshot cache.
type Cache struct {
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a [Cache] with the given entry TTL. A zero TTL selects
// [DefaultTTL].
func New(redisClient redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{redis: redisClient, ttl: ttl, logger: logger}
}

// Resolve returns the user for email, consulting the cache first and falling
// back to load on a miss. A successful load populates the cache; a not-found
// load propagates without populating. Cache-backend failures degrade to the
// fallback so an unavailable Redis never blocks authentication.
func (c *Cache) Resolve(ctx context.Context, email string, load LoadFunc) (*model.User, error) {
	key := keyPrefix + email

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		u, decErr := decodeUser(data)
		if decErr == nil {
			metrics.CacheHits.Inc()
			return u, nil
		}
		c.logger.Warn("discarding undecodable user snapshot", zap.String("email", email), zap.Error(decErr))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("user cache read failed, falling back to store", zap.Error(err))
	}
	metrics.CacheMisses.Inc()

	u, err := load(ctx, email)
	if err != nil {
		return nil, err
	}

	if data, err := encodeUser(u); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("user cache write failed", zap.Error(err))
		}
	} else {
		c.logger.Warn("user snapshot encode failed", zap.Error(err))
	}

	return u, nil
}

// Invalidate drops the cached snapshot for email. Called after any mutation
// that changes credentials or session state so authorization never observes
// a stale password hash or refresh token for longer than the in-flight
// requests that already resolved it.
func (c *Cache) Invalidate(ctx context.Context, email string) error {
	if err := c.redis.Del(ctx, keyPrefix+email).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
