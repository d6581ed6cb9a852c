package memcache

import (
	"container/list"
	"regexp"
	"sync"
	"time"
)

// Defaults for a TimedLRU built with non-positive capacity or TTL.
const (
	DefaultLRUCapacity = 100
	DefaultTTL         = 5 * time.Minute
)

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *lruEntry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Stats is a point-in-time snapshot of a TimedLRU for diagnostics.
type Stats struct {
	Size       int
	MaxSize    int
	DefaultTTL time.Duration
}

// TimedLRU is a fixed-capacity cache with least-recently-used eviction and a
// per-entry expiration timestamp. Expiry is lazy: an expired entry is deleted
// on the read that finds it; ClearExpired offers an eager sweep for callers
// that want one. Recency is touched by Get and Set, not by Has.
type TimedLRU[V any] struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	order      *list.List // of *lruEntry[V], front = least recently used
	items      map[string]*list.Element

	// now is swappable in tests
	now func() time.Time
}

// NewTimedLRU creates an LRU cache holding at most capacity entries, each
// expiring defaultTTL after insertion unless SetWithTTL overrides it.
func NewTimedLRU[V any](capacity int, defaultTTL time.Duration) *TimedLRU[V] {
	if capacity <= 0 {
		capacity = DefaultLRUCapacity
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TimedLRU[V]{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		order:      list.New(),
		items:      make(map[string]*list.Element, capacity),
		now:        time.Now,
	}
}

// Get returns the value for key and marks it most recently used. An entry
// past its expiry is deleted and reported absent.
func (c *TimedLRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*lruEntry[V])
	if ent.expired(c.now()) {
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToBack(el)
	return ent.value, true
}

// Set stores value for key with the default TTL.
func (c *TimedLRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value for key, expiring ttl from now. Any existing entry
// for the key is replaced, which also resets its recency. If the cache is at
// capacity the least-recently-used entry is evicted first.
func (c *TimedLRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	if c.order.Len() >= c.capacity {
		if lru := c.order.Front(); lru != nil {
			c.order.Remove(lru)
			delete(c.items, lru.Value.(*lruEntry[V]).key)
		}
	}
	c.items[key] = c.order.PushBack(&lruEntry[V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(ttl),
	})
}

// Has reports whether key is present and unexpired, deleting it lazily when
// expired. Unlike Get it does not touch recency.
func (c *TimedLRU[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	if el.Value.(*lruEntry[V]).expired(c.now()) {
		c.order.Remove(el)
		delete(c.items, key)
		return false
	}
	return true
}

// Delete removes key and reports whether it was present.
func (c *TimedLRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// DeletePattern removes every key matching re and returns how many were
// removed. Used to bulk-invalidate list-type keys without enumerating them.
func (c *TimedLRU[V]) DeletePattern(re *regexp.Regexp) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		ent := el.Value.(*lruEntry[V])
		if re.MatchString(ent.key) {
			c.order.Remove(el)
			delete(c.items, ent.key)
			count++
		}
		el = next
	}
	return count
}

// ClearExpired eagerly sweeps out expired entries and returns the count
// removed. Not required for correctness; lazy expiry already covers reads.
func (c *TimedLRU[V]) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	count := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		ent := el.Value.(*lruEntry[V])
		if ent.expired(now) {
			c.order.Remove(el)
			delete(c.items, ent.key)
			count++
		}
		el = next
	}
	return count
}

// Clear removes all entries.
func (c *TimedLRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Size returns the number of entries, including any not yet lazily expired.
func (c *TimedLRU[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns all keys from least to most recently used.
func (c *TimedLRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry[V]).key)
	}
	return keys
}

// Stats reports current size and configuration for diagnostics.
func (c *TimedLRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), MaxSize: c.capacity, DefaultTTL: c.defaultTTL}
}

// SetClock overrides the cache's time source. Test hook.
func (c *TimedLRU[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
