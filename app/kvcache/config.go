package kvcache

import (
	"github.com/dmitrymomot/kvcache/core/logger"
	"github.com/dmitrymomot/kvcache/core/server"
	"github.com/dmitrymomot/kvcache/httpserver"
	"github.com/dmitrymomot/kvcache/integration/database/redis"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendLRU   = "lru"
	BackendRedis = "redis"
)

// Config is the full application configuration, loaded from the environment.
type Config struct {
	Log    logger.Config
	Server server.Config
	Admin  httpserver.Config
	Redis  redis.Config

	Backend      string `env:"STORAGE_BACKEND" envDefault:"lru"`
	Capacity     int    `env:"CACHE_CAPACITY" envDefault:"67108864"` // 64MB
	AdminEnabled bool   `env:"ADMIN_ENABLED" envDefault:"true"`
}
