// Package cache provides a thread-safe, byte-bounded key/value store with strict
// least-recently-used eviction, and the Storage capability that network sessions
// and commands execute against.
//
// # Features
//
//   - Byte-accounted capacity: an entry costs len(key)+len(value)
//   - Strict LRU eviction from the tail, no secondary ordering
//   - Get promotes an entry to most-recently-used
//   - Entries larger than the whole capacity are always rejected, without mutation
//   - One exclusive lock per instance; every operation is atomic
//   - Arena-backed recency list addressed by integer handles
//   - Optional eviction callbacks for resource cleanup
//
// # Usage
//
//	import "github.com/dmitrymomot/kvcache/core/cache"
//
//	// 64 MiB budget for keys and values
//	c := cache.NewLRU(64 << 20)
//
//	c.Put("user:123", []byte("alice"))        // upsert
//	c.PutIfAbsent("user:123", []byte("bob"))  // false, key exists
//	c.Set("user:456", []byte("carol"))        // false, key absent
//
//	if v, ok := c.Get("user:123"); ok {
//		fmt.Printf("%s\n", v)
//	}
//
//	c.Delete("user:123")
//
// # Storage Capability
//
// Anything that needs a key/value store depends on the Storage interface rather than
// on *LRU, so alternative backends (see integration/database/redis) can be swapped in:
//
//	func handle(s cache.Storage) {
//		s.Put("k", []byte("v"))
//	}
//
// All five operations report failure as a boolean. Capacity rejection and key absence
// are ordinary outcomes, not errors.
//
// # Eviction Callbacks
//
// Register a callback to observe entries dropped by the eviction policy. Callbacks run
// after the cache lock is released, so they may call back into the cache:
//
//	c := cache.NewLRU(1<<20, cache.WithEvictionCallback(func(key string, value []byte) {
//		log.Printf("evicted %s (%d bytes)", key, len(value))
//	}))
//
// Explicit Delete calls do not trigger the callback.
//
// # Concurrency
//
// A single mutex guards the recency list and the key index together, so an observer
// never sees one without the other. Get takes the same exclusive lock because it
// mutates recency. Sharding by key hash is a possible later refinement; no evidence
// so far shows the single lock is a bottleneck.
package cache
