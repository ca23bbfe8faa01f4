package redis

import "time"

// Config holds Redis connection and storage settings with environment variable support.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	// Storage settings
	KeyPrefix        string        `env:"REDIS_KEY_PREFIX" envDefault:"kvcache:"`
	OperationTimeout time.Duration `env:"REDIS_OPERATION_TIMEOUT" envDefault:"1s"`
}
