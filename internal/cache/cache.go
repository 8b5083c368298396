// Package cache holds decoded images for a bounded time. It is purely a
// performance layer: entries expire on a TTL rather than an LRU policy so
// decoded bytes never outlive the window the compliance stance allows.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

// DefaultTTL bounds how long decoded bytes live outside the bank's storage.
const DefaultTTL = 60 * time.Second

const shardCount = 16

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_image_cache_hits_total",
		Help: "Image cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_image_cache_misses_total",
		Help: "Image cache misses",
	})
)

// Key identifies a cached decode result.
type Key struct {
	Path string
	Side model.Side
}

func (k Key) String() string { return k.Path + "|" + string(k.Side) }

type entry struct {
	image    *model.DecodedImage
	cachedAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Cache is a sharded TTL cache with single-flight fetches per key.
type Cache struct {
	ttl    time.Duration
	shards [shardCount]*shard
	group  singleflight.Group
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	stop chan struct{}
	once sync.Once
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now, stop: make(chan struct{})}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	go c.sweepLoop()
	return c
}

// FetchFn produces a decoded image when the cache has no fresh entry.
type FetchFn func(ctx context.Context) (*model.DecodedImage, error)

// GetOrFetch returns the cached image when fresh, otherwise runs fetch.
// Concurrent callers for the same key share a single in-flight fetch; its
// failure is their failure. The boolean reports whether the bytes came from
// cache rather than a storage read.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFn) (*model.DecodedImage, bool, error) {
	ks := key.String()
	if img, ok := c.lookup(ks); ok {
		c.hits.Add(1)
		cacheHits.Inc()
		return img, true, nil
	}

	// Only the caller whose fetch actually runs is a miss. Callers that
	// share the flight, or that find the entry filled while queued, were
	// served without a storage read of their own.
	fetched := false
	v, err, _ := c.group.Do(ks, func() (any, error) {
		if img, ok := c.lookup(ks); ok {
			return img, nil
		}
		fetched = true
		img, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ks, img)
		return img, nil
	})
	if err != nil {
		return nil, false, err
	}
	if fetched {
		c.misses.Add(1)
		cacheMisses.Inc()
	} else {
		c.hits.Add(1)
		cacheHits.Inc()
	}
	return v.(*model.DecodedImage), false, nil
}

func (c *Cache) lookup(key string) (*model.DecodedImage, bool) {
	sh := c.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[key]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.image, true
}

func (c *Cache) store(key string, img *model.DecodedImage) {
	sh := c.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = entry{image: img, cachedAt: c.now()}
	sh.mu.Unlock()
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.cachedAt) > c.ttl
}

// HitRate returns hits / (hits + misses), or 0 before any traffic.
func (c *Cache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Len counts live entries, expired ones excluded.
func (c *Cache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			if !c.expired(e) {
				n++
			}
		}
		sh.mu.RUnlock()
	}
	return n
}

// Stop terminates the background sweeper.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// sweepLoop evicts expired entries shard by shard so no sweep ever holds a
// global lock.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			for _, sh := range c.shards {
				sh.mu.Lock()
				for k, e := range sh.entries {
					if c.expired(e) {
						delete(sh.entries, k)
					}
				}
				sh.mu.Unlock()
			}
		}
	}
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[fnv32(key)%shardCount]
}

func fnv32(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
