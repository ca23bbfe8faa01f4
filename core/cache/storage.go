package cache

// Storage is the key/value capability consumed by sessions and commands.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put stores value under key unconditionally.
	Put(key string, value []byte) bool

	// PutIfAbsent stores value only if key is not present.
	PutIfAbsent(key string, value []byte) bool

	// Set replaces the value of an existing key.
	Set(key string, value []byte) bool

	// Delete removes key and reports whether anything was removed.
	Delete(key string) bool

	// Get returns a copy of the value stored under key.
	Get(key string) ([]byte, bool)
}

// Stats is a point-in-time snapshot of LRU counters.
type Stats struct {
	Entries    int   `json:"entries"`
	UsedBytes  int   `json:"used_bytes"`
	Capacity   int   `json:"capacity"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Rejections int64 `json:"rejections"`
}

// EntrySize returns the accounted size of an entry.
func EntrySize(key string, value []byte) int {
	return len(key) + len(value)
}

var _ Storage = (*LRU)(nil)
