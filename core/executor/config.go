package executor

import "time"

// Config holds executor configuration with environment variable support.
type Config struct {
	LowWatermark  int           `env:"EXECUTOR_LOW_WATERMARK" envDefault:"2"`
	HighWatermark int           `env:"EXECUTOR_HIGH_WATERMARK" envDefault:"8"`
	IdleTimeout   time.Duration `env:"EXECUTOR_IDLE_TIMEOUT" envDefault:"30s"`
	MaxQueueSize  int           `env:"EXECUTOR_MAX_QUEUE_SIZE" envDefault:"0"` // 0 means unbounded
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LowWatermark:  DefaultLowWatermark,
		HighWatermark: DefaultHighWatermark,
		IdleTimeout:   DefaultIdleTimeout,
	}
}

// NewFromConfig creates an Executor from configuration.
// A zero high watermark or idle timeout falls back to the default. Negative values are
// rejected by New. Additional options override config values.
func NewFromConfig(cfg Config, opts ...Option) (*Executor, error) {
	allOpts := []Option{
		WithLowWatermark(cfg.LowWatermark),
		WithMaxQueueSize(cfg.MaxQueueSize),
	}
	if cfg.HighWatermark != 0 {
		allOpts = append(allOpts, WithHighWatermark(cfg.HighWatermark))
	}
	if cfg.IdleTimeout != 0 {
		allOpts = append(allOpts, WithIdleTimeout(cfg.IdleTimeout))
	}

	return New(append(allOpts, opts...)...)
}
