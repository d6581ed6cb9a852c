// Package memcache holds the in-process cache tiers: a bounded FIFO map used
// as the hot tier and a TTL-aware LRU used behind it. Both are safe for
// concurrent use and never return errors; a miss is just (zero, false).
package memcache

import (
	"container/list"
	"sync"
)

// DefaultBoundedCapacity is used when a Bounded cache is built with a
// non-positive capacity.
const DefaultBoundedCapacity = 50

type boundedEntry[V any] struct {
	key   string
	value V
}

// Bounded is a fixed-capacity key-value cache with FIFO eviction. Inserting
// a new key at capacity evicts the oldest-inserted surviving entry. Updating
// an existing key keeps its insertion position and never evicts. Entries do
// not expire.
type Bounded[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // of *boundedEntry[V], front = oldest inserted
	items    map[string]*list.Element
}

// NewBounded creates a FIFO cache holding at most capacity entries.
func NewBounded[V any](capacity int) *Bounded[V] {
	if capacity <= 0 {
		capacity = DefaultBoundedCapacity
	}
	return &Bounded[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the value for key. ok=false if not present.
func (c *Bounded[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*boundedEntry[V]).value, true
	}
	var zero V
	return zero, false
}

// Set stores value for key. A new key at capacity first evicts the oldest
// entry; overwriting an existing key leaves insertion order untouched.
func (c *Bounded[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*boundedEntry[V]).value = value
		return
	}
	if c.order.Len() >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*boundedEntry[V]).key)
		}
	}
	c.items[key] = c.order.PushBack(&boundedEntry[V]{key: key, value: value})
}

// Has reports whether key is present.
func (c *Bounded[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Bounded[V]) Delete(key string) bool {
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

// Clear removes all entries.
func (c *Bounded[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Size returns the number of entries.
func (c *Bounded[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns all keys in insertion order, oldest first.
func (c *Bounded[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*boundedEntry[V]).key)
	}
	return keys
}

// Values returns all values in insertion order, oldest first.
func (c *Bounded[V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := make([]V, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		values = append(values, el.Value.(*boundedEntry[V]).value)
	}
	return values
}
