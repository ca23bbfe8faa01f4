package executor

import (
	"log/slog"
	"time"
)

const (
	DefaultLowWatermark  = 2
	DefaultHighWatermark = 8
	DefaultIdleTimeout   = 30 * time.Second
)

// Option is a functional option for configuring an executor.
type Option func(*options)

type options struct {
	name          string
	lowWatermark  int
	highWatermark int
	idleTimeout   time.Duration
	maxQueueSize  int
	logger        *slog.Logger
}

// WithName labels the executor in log records.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLowWatermark sets the number of workers kept alive while idle. Zero is allowed;
// a negative value makes New fail.
func WithLowWatermark(n int) Option {
	return func(o *options) {
		o.lowWatermark = n
	}
}

// WithHighWatermark sets the maximum number of workers spawned under load.
func WithHighWatermark(n int) Option {
	return func(o *options) {
		o.highWatermark = n
	}
}

// WithIdleTimeout sets how long a worker above the low watermark waits for work before
// retiring. It must be positive.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

// WithMaxQueueSize bounds the task queue. Zero keeps it unbounded.
func WithMaxQueueSize(n int) Option {
	return func(o *options) {
		o.maxQueueSize = n
	}
}

// WithLogger sets the logger for worker lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
