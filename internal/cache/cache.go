package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultTTL is short because meter status changes outside this service.
const DefaultTTL = time.Minute

type Cache struct {
	cache *ristretto.Cache
}

func NewCache() (*Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,     // number of keys to track frequency of (1M).
		MaxCost:     1 << 16, // maximum number of cached entries, each costs 1.
		BufferItems: 64,      // number of keys per Get buffer.
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache: cache,
	}, nil
}

func (c *Cache) Set(key string, value interface{}) {
	c.cache.SetWithTTL(key, value, 1, DefaultTTL)
}

func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.cache.SetWithTTL(key, value, 1, ttl)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *Cache) Del(key string) {
	c.cache.Del(key)
}

func (c *Cache) Close() {
	c.cache.Close()
}
