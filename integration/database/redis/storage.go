package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/logger"
)

// DefaultOperationTimeout bounds a single storage call.
const DefaultOperationTimeout = time.Second

// StorageStats holds storage counters.
type StorageStats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Rejections int64 `json:"rejections"`
	Errors     int64 `json:"errors"`
}

// Storage implements cache.Storage on top of a Redis server. Eviction is left to the
// server's maxmemory policy; capacity only bounds the size of a single entry, matching
// the in-memory cache's rejection rule. Redis errors are logged and reported as a
// failed operation. Safe for concurrent use.
type Storage struct {
	client    redis.UniversalClient
	prefix    string
	capacity  int
	opTimeout time.Duration
	logger    *slog.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	rejections atomic.Int64
	failures   atomic.Int64
}

// StorageOption configures a Storage.
type StorageOption func(*Storage)

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) StorageOption {
	return func(s *Storage) {
		s.prefix = prefix
	}
}

// WithCapacity rejects entries whose accounted size exceeds n bytes. Zero disables the check.
func WithCapacity(n int) StorageOption {
	return func(s *Storage) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithOperationTimeout bounds each Redis call.
func WithOperationTimeout(d time.Duration) StorageOption {
	return func(s *Storage) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithLogger sets the storage logger.
func WithLogger(l *slog.Logger) StorageOption {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStorage creates a Storage over client.
func NewStorage(client redis.UniversalClient, opts ...StorageOption) *Storage {
	s := &Storage{
		client:    client,
		opTimeout: DefaultOperationTimeout,
		logger:    logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStorageFromConfig creates a Storage using the prefix and timeout from cfg.
// Additional options can override config values.
func NewStorageFromConfig(client redis.UniversalClient, cfg Config, opts ...StorageOption) *Storage {
	base := []StorageOption{WithKeyPrefix(cfg.KeyPrefix), WithOperationTimeout(cfg.OperationTimeout)}
	return NewStorage(client, append(base, opts...)...)
}

var _ cache.Storage = (*Storage)(nil)

// Put stores value under key unconditionally.
func (s *Storage) Put(key string, value []byte) bool {
	if !s.fits(key, value) {
		return false
	}
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		s.fail("set", key, err)
		return false
	}
	return true
}

// PutIfAbsent stores value only if key is not present.
func (s *Storage) PutIfAbsent(key string, value []byte) bool {
	if !s.fits(key, value) {
		return false
	}
	ctx, cancel := s.opContext()
	defer cancel()

	ok, err := s.client.SetNX(ctx, s.prefix+key, value, 0).Result()
	if err != nil {
		s.fail("setnx", key, err)
		return false
	}
	return ok
}

// Set replaces the value of an existing key.
func (s *Storage) Set(key string, value []byte) bool {
	if !s.fits(key, value) {
		return false
	}
	ctx, cancel := s.opContext()
	defer cancel()

	ok, err := s.client.SetXX(ctx, s.prefix+key, value, 0).Result()
	if err != nil {
		s.fail("setxx", key, err)
		return false
	}
	return ok
}

// Delete removes key and reports whether anything was removed.
func (s *Storage) Delete(key string) bool {
	ctx, cancel := s.opContext()
	defer cancel()

	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		s.fail("del", key, err)
		return false
	}
	return n > 0
}

// Get returns the value stored under key.
func (s *Storage) Get(key string) ([]byte, bool) {
	ctx, cancel := s.opContext()
	defer cancel()

	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		s.misses.Add(1)
		return nil, false
	case err != nil:
		s.fail("get", key, err)
		return nil, false
	}
	s.hits.Add(1)
	return v, true
}

// Stats returns current storage counters.
func (s *Storage) Stats() StorageStats {
	return StorageStats{
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Rejections: s.rejections.Load(),
		Errors:     s.failures.Load(),
	}
}

func (s *Storage) fits(key string, value []byte) bool {
	if s.capacity > 0 && cache.EntrySize(key, value) > s.capacity {
		s.rejections.Add(1)
		return false
	}
	return true
}

func (s *Storage) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *Storage) fail(op, key string, err error) {
	s.failures.Add(1)
	s.logger.Error("redis operation failed",
		logger.Component("redis"),
		logger.Command(op),
		logger.CacheKey(key),
		logger.Error(err))
}
