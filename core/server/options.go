package server

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/kvcache/core/protocol"
)

// Option configures server behavior.
type Option func(*Server)

// WithLogger sets a custom logger for server and connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkers sets the number of event loops. Each owns an epoll instance and a share
// of the connections.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithReadBufferSize sets the per-read chunk size of each connection.
func WithReadBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.readBufferSize = n
		}
	}
}

// WithMaxOutput sets the per-connection output high-water mark. Zero disables it.
func WithMaxOutput(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.maxOutput = n
		}
	}
}

// WithIdleTimeout closes connections without reads or writes for d. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.idleTimeout = d
		}
	}
}

// WithShutdownTimeout sets the maximum time to wait for the event loops to exit.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdown = timeout
		}
	}
}

// WithParserOptions configures the protocol parser created for each connection.
func WithParserOptions(opts ...protocol.ParserOption) Option {
	return func(s *Server) {
		s.parserOpts = append(s.parserOpts, opts...)
	}
}
