package cache

import "sync"

// EvictFunc receives entries removed by eviction or Clear.
type EvictFunc[K comparable, V any] func(key K, value V)

// Cache is a thread-safe LRU cache with a soft limit. When the number of
// entries exceeds the limit, the least recently used entries are evicted.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*entry[K, V]
	head      *entry[K, V] // most recently used
	tail      *entry[K, V] // least recently used
	softLimit int
	onEvict   EvictFunc[K, V]

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

// New creates a cache. A softLimit of 0 means unlimited. onEvict may be nil.
func New[K comparable, V any](softLimit int, onEvict EvictFunc[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*entry[K, V]),
		softLimit: softLimit,
		onEvict:   onEvict,
	}
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.moveToFront(e)
	return e.value, true
}

// Set stores a value, replacing any previous value without calling the
// eviction function for it.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	evicted := c.insert(key, value)
	c.mu.Unlock()

	c.notify(evicted)
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the cache lock; a create error leaves the cache
// unchanged.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		c.moveToFront(e)
		c.mu.Unlock()
		return e.value, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		c.mu.Unlock()
		var zero V
		return zero, err
	}
	evicted := c.insert(key, value)
	c.mu.Unlock()

	c.notify(evicted)
	return value, nil
}

// Delete removes an entry without calling the eviction function.
// Returns the removed value and true if it was present.
func (c *Cache[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.unlink(e)
	delete(c.entries, key)
	return e.value, true
}

// Clear removes every entry, passing each to the eviction function.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	var evicted []*entry[K, V]
	for e := c.tail; e != nil; e = e.prev {
		evicted = append(evicted, e)
	}
	c.entries = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
	c.mu.Unlock()

	c.notify(evicted)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// insert stores key and returns the entries evicted to stay under the soft
// limit. Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) []*entry[K, V] {
	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return nil
	}
	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	if c.softLimit <= 0 || len(c.entries) <= c.softLimit {
		return nil
	}
	var evicted []*entry[K, V]
	for len(c.entries) > c.softLimit && c.tail != nil && c.tail != e {
		old := c.tail
		c.unlink(old)
		delete(c.entries, old.key)
		c.evictions++
		evicted = append(evicted, old)
	}
	return evicted
}

func (c *Cache[K, V]) notify(evicted []*entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range evicted {
		c.onEvict(e.key, e.value)
	}
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[K, V]) moveToFront(e *entry[K, V]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit, 0 if unlimited.
	Capacity int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries removed to honor the soft limit.
	Evictions uint64
}
