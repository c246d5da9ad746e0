package geo

import "sync"

// Cache is an in-memory domain -> country table. It is reset wholesale once
// it reaches its size limit.
type Cache struct {
	mu    sync.RWMutex
	inMem map[string]string // key: registered domain
	max   int
}

func NewCache(max int) *Cache {
	if max <= 0 {
		max = 4096
	}
	return &Cache{inMem: map[string]string{}, max: max}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.inMem[key]
	return v, ok
}

func (c *Cache) Put(key, country string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inMem[key]; !ok && len(c.inMem) >= c.max {
		c.inMem = map[string]string{}
	}
	c.inMem[key] = country
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.inMem)
}
