package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/langtable/models"
)

// entry holds a cached report with its creation timestamp.
type entry struct {
	report    *models.RunReport
	createdAt time.Time
}

// Cache is an in-memory cache of finished run reports.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Cache holding at most maxEntries reports. Entries older than
// ttl are evicted by a background sweep until Stop is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := newCache(maxEntries, ttl, time.Now)
	go c.cleanupLoop(sweepInterval(ttl))
	return c
}

func newCache(maxEntries int, ttl time.Duration, now func() time.Time) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
		done:       make(chan struct{}),
	}
}

// Key identifies a run by its index URL, href prefix and effective item cap
// (0 = unlimited). Runs with different caps never share an entry.
func Key(indexURL, hrefPrefix string, maxItems int) string {
	h := sha256.New()
	h.Write([]byte(indexURL))
	h.Write([]byte("|"))
	h.Write([]byte(hrefPrefix))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(maxItems)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached report if it exists and is younger than maxAge.
// maxAge is in milliseconds; maxAge <= 0 disables the lookup.
func (c *Cache) Get(key string, maxAgeMs int) (*models.RunReport, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	age := c.now().Sub(e.createdAt)
	if age > time.Duration(maxAgeMs)*time.Millisecond || (c.ttl > 0 && age > c.ttl) {
		return nil, false
	}
	return e.report, true
}

// Set stores a report. At capacity the oldest entry is evicted.
func (c *Cache) Set(key string, report *models.RunReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{report: report, createdAt: c.now()}
}

// Len returns the number of cached reports.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the background sweep.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// evictExpired drops entries older than the TTL.
func (c *Cache) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// sweepInterval is a twelfth of the TTL, clamped to [1m, 5m].
func sweepInterval(ttl time.Duration) time.Duration {
	d := ttl / 12
	switch {
	case d < time.Minute:
		return time.Minute
	case d > 5*time.Minute:
		return 5 * time.Minute
	}
	return d
}
