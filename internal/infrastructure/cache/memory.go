package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// memoryCache holds serialized entries for the lifetime of the session.  No
// TTL and no eviction: optimization runs are bounded and the population sizes
// this engine targets keep the working set small.
type memoryCache struct {
	entries    sync.Map // key string → []byte
	serializer Serializer
	logger     logging.Logger
	group      singleflight.Group
}

// MemoryOption customizes the in-memory backend.
type MemoryOption func(*memoryCache)

// WithMemorySerializer replaces the default JSON serializer.
func WithMemorySerializer(s Serializer) MemoryOption {
	return func(c *memoryCache) { c.serializer = s }
}

// NewMemoryCache constructs the session-scoped in-memory backend.
func NewMemoryCache(log logging.Logger, opts ...MemoryOption) Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &memoryCache{
		serializer: jsonSerializer{},
		logger:     log.Named("cache.memory"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.entries.Load(key)
	if !ok {
		return ErrCacheMiss
	}
	if err := c.serializer.Unmarshal(raw.([]byte), dest); err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "decoding cached value")
	}
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "encoding value for cache")
	}
	c.entries.Store(key, data)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.entries.Delete(k)
	}
	return nil
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.IsCode(err, errors.CodeNotFound) {
		return err
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

	// Round-trip through the serializer so every caller, including the one
	// that ran the loader, receives an identical decoded copy.
	data, err := c.serializer.Marshal(val)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "encoding loaded value")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.CodeCacheSerialization, "decoding loaded value")
	}
	return nil
}
