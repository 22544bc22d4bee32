// Package cache provides a bounded in-process cache for parsed contract
// artifacts and other values that are expensive to load from disk.
package cache

import "time"

// Cache is the interface for caching loaded values.
type Cache interface {
	// Get returns (value, true) if found, (nil, false) otherwise.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. A zero TTL never expires.
	Set(key string, value interface{}, ttl time.Duration) bool

	Delete(key string)

	Clear()

	Close()
}

// Loader produces a value on cache miss.
type Loader func() (interface{}, error)

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Load errors are not cached.
func GetOrLoad(c Cache, key string, ttl time.Duration, load Loader) (interface{}, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := load()
	if err != nil {
		LoadErrorsTotal.Inc()
		return nil, err
	}

	c.Set(key, value, ttl)
	return value, nil
}
