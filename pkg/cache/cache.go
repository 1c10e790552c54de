// Package cache provides a thread-safe LRU cache for compiled scripts.
//
// The engine keeps one cache so that creating the same script twice parses
// it once. Entries are keyed by Key, an xxh3 hash of the source, the
// parameter names and the script name.
//
// # Example
//
//	c := cache.New(1024)
//	script, err := c.GetOrCompile(cache.Key(src, nil, ""), compile)
package cache

import (
	"container/list"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/sandrolain/gojexl/pkg/types"
)

// DefaultCapacity is used when New is given a capacity <= 0.
const DefaultCapacity = 256

// Key hashes what identifies a compiled script. Parameter names take part
// since they change slot allocation; the name changes error positions.
func Key(source string, params []string, name string) uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	for _, p := range params {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(source)
	return h.Sum64()
}

type entry struct {
	key    uint64
	script *types.Script
}

// Cache is an LRU cache of compiled scripts. Once the capacity is reached,
// the least recently used entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element

	hits, misses uint64
}

// New creates a cache holding at most capacity scripts.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

// Get returns the script stored under key and marks it most recently used.
func (c *Cache) Get(key uint64) (*types.Script, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	front := ok && c.ll.Front() == el
	c.mu.RUnlock()

	if !front {
		c.mu.Lock()
		if el, ok = c.items[key]; ok {
			c.ll.MoveToFront(el)
			c.hits++
		} else {
			c.misses++
		}
		c.mu.Unlock()
		if !ok {
			return nil, false
		}
		return el.Value.(*entry).script, true
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return el.Value.(*entry).script, true
}

// Set stores script under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key uint64, script *types.Script) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).script = script
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, script: script})
}

// GetOrCompile returns the script stored under key, or compiles, stores and
// returns it. Compile errors are not cached.
func (c *Cache) GetOrCompile(key uint64, compile func() (*types.Script, error)) (*types.Script, error) {
	if script, ok := c.Get(key); ok {
		return script, nil
	}
	script, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, script)
	return script, nil
}

// Len returns the number of cached scripts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Capacity returns the maximum number of cached scripts.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns the number of hits and misses of Get.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Invalidate removes the entry stored under key.
func (c *Cache) Invalidate(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[uint64]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry. c.mu must be held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
