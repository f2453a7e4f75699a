// Package redis implements layout.Cache backed by Redis. Resolved
// layouts are msgpack-encoded and expire on their TTL, bounding how long
// a candidate-set change can go unnoticed.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cache := redisstore.NewCache(client)
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Compile-time interface check.
var _ layout.Cache = (*Cache)(nil)

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Cache implements layout.Cache backed by Redis.
type Cache struct {
	client redis.Cmdable
	logger *slog.Logger
}

// NewCache creates a Redis-backed layout cache. The caller owns the
// Redis client lifecycle.
func NewCache(client redis.Cmdable, opts ...Option) *Cache {
	c := &Cache{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Client returns the underlying Redis client.
func (c *Cache) Client() redis.Cmdable { return c.client }

// Ping verifies the Redis connection is alive.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ── msgpack model ──
//
// The schema tree round-trips through its JSON form; msgpack carries the
// envelope. Value's representation stays private to the value package.

type cachedResolution struct {
	Schema     []byte `msgpack:"schema"`
	LayoutName string `msgpack:"layout_name"`
	Context    string `msgpack:"context"`
	ObjectType string `msgpack:"object_type"`
	Default    bool   `msgpack:"default"`
}

func encodeResolution(res *layout.Resolution) ([]byte, error) {
	schema, err := json.Marshal(res.Schema)
	if err != nil {
		return nil, fmt.Errorf("beema/redis: encode schema: %w", err)
	}
	return msgpack.Marshal(&cachedResolution{
		Schema:     schema,
		LayoutName: res.Metadata.LayoutName,
		Context:    res.Metadata.Context,
		ObjectType: res.Metadata.ObjectType,
		Default:    res.Metadata.Default,
	})
}

func decodeResolution(data []byte) (*layout.Resolution, error) {
	var cached cachedResolution
	if err := msgpack.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("beema/redis: decode resolution: %w", err)
	}
	schema, err := value.ParseObject(cached.Schema)
	if err != nil {
		return nil, fmt.Errorf("beema/redis: decode schema: %w", err)
	}
	return &layout.Resolution{
		Schema: schema,
		Metadata: layout.Metadata{
			LayoutName: cached.LayoutName,
			Context:    cached.Context,
			ObjectType: cached.ObjectType,
			Default:    cached.Default,
		},
	}, nil
}

// GetResolution returns the cached resolution for the key, if present.
func (c *Cache) GetResolution(ctx context.Context, key string) (*layout.Resolution, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("beema/redis: get resolution: %w", err)
	}

	res, err := decodeResolution(data)
	if err != nil {
		// A corrupt entry is a miss, not a failure: the caller re-resolves
		// and overwrites it.
		c.logger.Warn("dropping corrupt cache entry", slog.String("key", key))
		return nil, false, nil
	}
	return res, true, nil
}

// PutResolution stores the resolution under the key with the given TTL.
func (c *Cache) PutResolution(ctx context.Context, key string, res *layout.Resolution, ttl time.Duration) error {
	data, err := encodeResolution(res)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("beema/redis: put resolution: %w", err)
	}
	return nil
}
