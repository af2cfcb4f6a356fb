package kv

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedValue struct {
	value string
	ok    bool
}

// Cached is a write-through read cache in front of another Store. Writes always
// reach the inner store before the cache is updated, so a failed write never
// leaves a value in the cache that was not persisted.
type Cached struct {
	inner Store
	cache *lru.Cache[string, cachedValue]
}

func NewCached(inner Store, size int) (*Cached, error) {
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, cachedValue](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Read(key string) (string, bool, error) {
	if hit, ok := c.cache.Get(key); ok {
		return hit.value, hit.ok, nil
	}
	value, ok, err := c.inner.Read(key)
	if err != nil {
		return "", false, err
	}
	c.cache.Add(key, cachedValue{value: value, ok: ok})
	return value, ok, nil
}

func (c *Cached) Write(key, value string) error {
	err := c.inner.Write(key, value)
	if err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, cachedValue{value: value, ok: true})
	return nil
}
