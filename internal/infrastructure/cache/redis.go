package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// redisCache shares valuation results across worker processes.  Entries carry
// a TTL because a shared store outlives any single session.
type redisCache struct {
	client     redis.UniversalClient
	logger     logging.Logger
	prefix     string
	ttl        time.Duration
	serializer Serializer
	group      singleflight.Group
}

// RedisOption customizes the Redis backend.
type RedisOption func(*redisCache)

// WithPrefix replaces the default "winwin:" key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithTTL replaces the default one-hour entry lifetime.  Zero disables
// expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *redisCache) { c.ttl = ttl }
}

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s Serializer) RedisOption {
	return func(c *redisCache) { c.serializer = s }
}

// NewRedisCache constructs the shared Redis backend over client.
func NewRedisCache(client redis.UniversalClient, log logging.Logger, opts ...RedisOption) Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client:     client,
		logger:     log.Named("cache.redis"),
		prefix:     "winwin:",
		ttl:        time.Hour,
		serializer: jsonSerializer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string { return c.prefix + key }

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "reading from redis")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "decoding cached value")
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "encoding value for cache")
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "writing to redis")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "deleting from redis")
	}
	return nil
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.IsCode(err, errors.CodeNotFound) {
		// Backend failure degrades to a direct load: memoization is an
		// optimization, not a correctness dependency.
		c.logger.Warn("redis read failed, loading directly", logging.Err(err))
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(ctx, key, v); setErr != nil {
			c.logger.Warn("storing loaded value failed", logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	data, err := c.serializer.Marshal(val)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "encoding loaded value")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "decoding loaded value")
	}
	return nil
}

// Ping verifies connectivity at startup.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "redis ping failed")
	}
	return nil
}
