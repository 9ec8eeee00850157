// Package cache memoizes synthesized lookup results.
// Synthesizing is deterministic, so a cached result never goes stale as long as the synthesizer settings stay the
// same. The settings are part of every key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prior-it/addressbook/core"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	// Get returns the cached candidates for the query. The boolean is false if nothing was cached.
	Get(ctx context.Context, query core.LookupQuery) ([]core.RawAddress, bool, error)
	// Set caches the candidates for the query, this includes empty results.
	Set(ctx context.Context, query core.LookupQuery, addresses []core.RawAddress) error
	Close() error
}

// RedisCache stores lookup results in redis as JSON.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// Force struct to implement the interface
var _ Cache = &RedisCache{}

// NewRedisCache connects to the redis server at url, e.g. "redis://localhost:6379/0".
// namespace should identify the synthesizer settings the cached results were produced with.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration, namespace string) (*RedisCache, error) {
	slog.Info("Connecting to redis lookup cache", "url", url)
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	c := NewRedisCacheFromClient(redis.NewClient(opts), ttl, namespace)
	if err := c.client.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	return c, nil
}

// NewRedisCacheFromClient uses an existing redis client, the cache takes ownership of the client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, namespace string) *RedisCache {
	return &RedisCache{
		client:    client,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *RedisCache) key(query core.LookupQuery) string {
	return fmt.Sprintf("lookup:%s:%s:%s", c.namespace, query.Postcode, query.StreetNumber)
}

// Get implements Cache.Get
func (c *RedisCache) Get(
	ctx context.Context,
	query core.LookupQuery,
) ([]core.RawAddress, bool, error) {
	data, err := c.client.Get(ctx, c.key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("cannot read cached lookup: %w", err)
	}

	var addresses []core.RawAddress
	if err := json.Unmarshal(data, &addresses); err != nil {
		return nil, false, fmt.Errorf("cannot decode cached lookup: %w", err)
	}
	return addresses, true, nil
}

// Set implements Cache.Set
func (c *RedisCache) Set(
	ctx context.Context,
	query core.LookupQuery,
	addresses []core.RawAddress,
) error {
	if addresses == nil {
		addresses = []core.RawAddress{}
	}
	data, err := json.Marshal(addresses)
	if err != nil {
		return fmt.Errorf("cannot encode lookup: %w", err)
	}
	if err := c.client.Set(ctx, c.key(query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cannot cache lookup: %w", err)
	}
	return nil
}

// Close implements Cache.Close
func (c *RedisCache) Close() error {
	return c.client.Close()
}
