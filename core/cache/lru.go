package cache

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/kvcache/core/logger"
)

// nilHandle marks the absence of a neighbour in the recency list.
const nilHandle = -1

// node is one arena slot. prev/next are handles into LRU.nodes.
type node struct {
	key   string
	value []byte
	prev  int
	next  int
}

type evicted struct {
	key   string
	value []byte
}

// LRU is a byte-bounded key/value store with strict least-recently-used eviction.
// Safe for concurrent use.
type LRU struct {
	mu       sync.Mutex
	capacity int
	used     int

	nodes []node
	free  []int
	head  int // most recently used
	tail  int // least recently used
	index map[string]int

	onEvict func(key string, value []byte)
	logger  *slog.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	rejections atomic.Int64
}

// NewLRU creates a cache that holds at most capacity bytes of keys and values.
// A non-positive capacity rejects every entry.
func NewLRU(capacity int, opts ...Option) *LRU {
	c := &LRU{
		capacity: max(capacity, 0),
		head:     nilHandle,
		tail:     nilHandle,
		index:    make(map[string]int),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Put inserts or replaces key. It fails only when the entry exceeds capacity.
func (c *LRU) Put(key string, value []byte) bool {
	if !c.fits(key, value) {
		return false
	}

	c.mu.Lock()
	var dropped []evicted
	if h, ok := c.index[key]; ok {
		dropped = c.update(h, value)
	} else {
		dropped = c.insert(key, value)
	}
	c.mu.Unlock()

	c.notify(dropped)
	return true
}

// PutIfAbsent inserts key only if it is not already present.
func (c *LRU) PutIfAbsent(key string, value []byte) bool {
	if !c.fits(key, value) {
		return false
	}

	c.mu.Lock()
	if _, ok := c.index[key]; ok {
		c.mu.Unlock()
		return false
	}
	dropped := c.insert(key, value)
	c.mu.Unlock()

	c.notify(dropped)
	return true
}

// Set replaces the value of an existing key.
func (c *LRU) Set(key string, value []byte) bool {
	if !c.fits(key, value) {
		return false
	}

	c.mu.Lock()
	h, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	dropped := c.update(h, value)
	c.mu.Unlock()

	c.notify(dropped)
	return true
}

// Delete removes key and reports whether it was present.
func (c *LRU) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.index[key]
	if !ok {
		return false
	}
	c.remove(h)
	return true
}

// Get returns a copy of the value for key and marks it most recently used.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.index[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	c.promote(h)
	return clone(c.nodes[h].value), true
}

// Len returns the number of entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Size returns the accounted bytes currently in use.
func (c *LRU) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Capacity returns the configured byte budget.
func (c *LRU) Capacity() int {
	return c.capacity
}

// Keys returns all keys ordered from most to least recently used.
// Intended for diagnostics and tests; it does not affect recency.
func (c *LRU) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.index))
	for h := c.head; h != nilHandle; h = c.nodes[h].next {
		keys = append(keys, c.nodes[h].key)
	}
	return keys
}

// Stats returns current counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	entries, used := len(c.index), c.used
	c.mu.Unlock()

	return Stats{
		Entries:    entries,
		UsedBytes:  used,
		Capacity:   c.capacity,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Rejections: c.rejections.Load(),
	}
}

func (c *LRU) fits(key string, value []byte) bool {
	if EntrySize(key, value) <= c.capacity {
		return true
	}
	c.rejections.Add(1)
	c.logger.Debug("entry rejected",
		logger.Component("cache"),
		logger.CacheKey(key),
		logger.Size(EntrySize(key, value)),
		slog.Int("capacity", c.capacity))
	return false
}

// insert adds a new entry at the head, evicting from the tail until it fits.
// Caller holds c.mu and has checked that the entry fits the capacity.
func (c *LRU) insert(key string, value []byte) []evicted {
	size := EntrySize(key, value)

	var dropped []evicted
	for c.used+size > c.capacity && c.tail != nilHandle {
		dropped = append(dropped, c.evict())
	}

	h := c.alloc(key, clone(value))
	c.pushFront(h)
	c.index[key] = h
	c.used += size
	return dropped
}

// update replaces the value at h, promoting it first so eviction never picks it.
// Caller holds c.mu and has checked that the entry fits the capacity.
func (c *LRU) update(h int, value []byte) []evicted {
	c.promote(h)

	n := &c.nodes[h]
	delta := len(value) - len(n.value)

	var dropped []evicted
	for c.used+delta > c.capacity && c.tail != h {
		dropped = append(dropped, c.evict())
	}

	n.value = clone(value)
	c.used += delta
	return dropped
}

// evict removes the tail entry and returns it for callback delivery.
func (c *LRU) evict() evicted {
	h := c.tail
	e := evicted{key: c.nodes[h].key, value: c.nodes[h].value}
	c.remove(h)
	c.evictions.Add(1)
	return e
}

// remove unlinks h, drops it from the index and recycles the slot.
func (c *LRU) remove(h int) {
	n := &c.nodes[h]
	c.unlink(h)
	delete(c.index, n.key)
	c.used -= EntrySize(n.key, n.value)

	*n = node{prev: nilHandle, next: nilHandle}
	c.free = append(c.free, h)
}

func (c *LRU) alloc(key string, value []byte) int {
	n := node{key: key, value: value, prev: nilHandle, next: nilHandle}
	if k := len(c.free); k > 0 {
		h := c.free[k-1]
		c.free = c.free[:k-1]
		c.nodes[h] = n
		return h
	}
	c.nodes = append(c.nodes, n)
	return len(c.nodes) - 1
}

func (c *LRU) promote(h int) {
	if c.head == h {
		return
	}
	c.unlink(h)
	c.pushFront(h)
}

func (c *LRU) pushFront(h int) {
	n := &c.nodes[h]
	n.prev = nilHandle
	n.next = c.head
	if c.head != nilHandle {
		c.nodes[c.head].prev = h
	}
	c.head = h
	if c.tail == nilHandle {
		c.tail = h
	}
}

func (c *LRU) unlink(h int) {
	n := &c.nodes[h]
	if n.prev != nilHandle {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilHandle {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nilHandle, nilHandle
}

func (c *LRU) notify(dropped []evicted) {
	for _, e := range dropped {
		c.logger.Debug("entry evicted",
			logger.Component("cache"),
			logger.CacheKey(e.key),
			logger.Size(EntrySize(e.key, e.value)))
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
