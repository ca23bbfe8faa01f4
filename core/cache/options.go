package cache

import "log/slog"

// Option configures an LRU.
type Option func(*LRU)

// WithEvictionCallback registers fn to be called for every entry dropped by eviction.
// fn runs outside the cache lock.
func WithEvictionCallback(fn func(key string, value []byte)) Option {
	return func(c *LRU) {
		c.onEvict = fn
	}
}

// WithLogger sets the logger for eviction and rejection events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *LRU) {
		if logger != nil {
			c.logger = logger
		}
	}
}
