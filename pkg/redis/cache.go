package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	setCacheValue = Set
	getCacheValue = Get
	delCacheValue = Del
)

// JSONCache stores JSON encoded values under a key prefix with a fixed TTL
type JSONCache struct {
	prefix string
	ttl    time.Duration
}

// NewJSONCache creates a cache whose keys are prefix + ":" + key
func NewJSONCache(prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{prefix: prefix, ttl: ttl}
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes a cached value into dest. It reports false on a miss.
func (c *JSONCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := getCacheValue(ctx, c.key(key))
	if errors.Is(err, ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value for the cache TTL
func (c *JSONCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return setCacheValue(ctx, c.key(key), string(data), c.ttl)
}

// Delete evicts a key
func (c *JSONCache) Delete(ctx context.Context, key string) error {
	return delCacheValue(ctx, c.key(key))
}
