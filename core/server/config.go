package server

import (
	"time"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/network"
	"github.com/dmitrymomot/kvcache/core/protocol"
)

// Config holds server configuration with environment variable support.
type Config struct {
	Addr           string `env:"SERVER_ADDR" envDefault:":11211"`
	Workers        int    `env:"SERVER_WORKERS" envDefault:"4"`
	ReadBufferSize int    `env:"SERVER_READ_BUFFER_SIZE" envDefault:"4096"`
	MaxOutput      int    `env:"SERVER_MAX_OUTPUT" envDefault:"1048576"` // 1MB

	// Protocol limits
	MaxLineLength int `env:"SERVER_MAX_LINE_LENGTH" envDefault:"2048"`
	MaxValueSize  int `env:"SERVER_MAX_VALUE_SIZE" envDefault:"1048576"`

	// Timeouts
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":11211",
		Workers:         DefaultWorkers,
		ReadBufferSize:  network.DefaultReadBufferSize,
		MaxOutput:       DefaultMaxOutput,
		MaxLineLength:   protocol.DefaultMaxLineLength,
		MaxValueSize:    protocol.DefaultMaxValueSize,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// NewFromConfig creates a Server from configuration.
// Additional options can override config values.
func NewFromConfig(cfg Config, storage cache.Storage, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}
	if storage == nil {
		return nil, ErrMissingStorage
	}

	configOpts := []Option{
		WithWorkers(cfg.Workers),
		WithReadBufferSize(cfg.ReadBufferSize),
		WithMaxOutput(cfg.MaxOutput),
		WithIdleTimeout(cfg.IdleTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
		WithParserOptions(
			protocol.WithMaxLineLength(cfg.MaxLineLength),
			protocol.WithMaxValueSize(cfg.MaxValueSize),
		),
	}

	return New(cfg.Addr, storage, append(configOpts, opts...)...), nil
}
