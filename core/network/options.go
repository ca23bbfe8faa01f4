package network

import (
	"log/slog"

	"github.com/dmitrymomot/kvcache/core/protocol"
)

// DefaultReadBufferSize is the size of the chunk read from the socket per call.
const DefaultReadBufferSize = 4096

// Option configures a Session.
type Option func(*Session)

// WithParser replaces the default memcached text parser.
func WithParser(p protocol.Parser) Option {
	return func(s *Session) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithReadBufferSize sets the per-read chunk size.
func WithReadBufferSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.readBuf = make([]byte, n)
		}
	}
}

// WithMaxOutput sets the output high-water mark. Once that many bytes are pending the
// session stops executing commands and drops read interest until the peer catches up.
// Zero disables backpressure.
func WithMaxOutput(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxOutput = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithID sets the session identifier used in log records.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}
