package market

import (
	"sync"
	"time"
)

// Cache keeps the last observed reading per exchange and symbol. Writes
// overwrite, never merge; reads enforce a freshness bound so a stale entry
// is reported as absent rather than priced into a trade.
type Cache struct {
	mu       sync.RWMutex
	readings map[string]Reading
	now      func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		readings: make(map[string]Reading),
		now:      time.Now,
	}
}

func (c *Cache) Put(r Reading) {
	if !r.Valid() {
		return
	}
	c.mu.Lock()
	c.readings[cacheKey(r.Exchange, r.Symbol)] = r
	c.mu.Unlock()
}

// Get returns the cached reading for (exchange, symbol) unless it is older
// than maxAge. maxAge <= 0 disables the freshness check.
func (c *Cache) Get(exchange, symbol string, maxAge time.Duration) (Reading, bool) {
	c.mu.RLock()
	r, ok := c.readings[cacheKey(exchange, symbol)]
	c.mu.RUnlock()
	if !ok {
		return Reading{}, false
	}
	if maxAge > 0 && r.Age(c.now()) > maxAge {
		return Reading{}, false
	}
	return r, true
}

func cacheKey(exchange, symbol string) string {
	return exchange + "|" + symbol
}
