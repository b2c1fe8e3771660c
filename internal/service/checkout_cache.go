package service

import (
	"sync"
	"time"
)

type cachedLink struct {
	url      string
	cachedAt time.Time
}

// LinkCache keeps recently created checkout URLs per key for ttl.
type LinkCache struct {
	mu    sync.RWMutex
	links map[string]cachedLink
	ttl   time.Duration
}

func NewLinkCache(ttl time.Duration) *LinkCache {
	return &LinkCache{links: make(map[string]cachedLink), ttl: ttl}
}

func (c *LinkCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.links[key]
	if !ok || time.Since(l.cachedAt) > c.ttl {
		return "", false
	}
	return l.url, true
}

func (c *LinkCache) Set(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, l := range c.links {
		if now.Sub(l.cachedAt) > c.ttl {
			delete(c.links, k)
		}
	}
	c.links[key] = cachedLink{url: url, cachedAt: now}
}
