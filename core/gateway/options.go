package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/kvcache/core/network"
	"github.com/dmitrymomot/kvcache/core/protocol"
)

const (
	// DefaultMaxMessageSize bounds a single inbound frame.
	DefaultMaxMessageSize = 2 << 20

	// DefaultIdleTimeout closes connections that send nothing for this long.
	DefaultIdleTimeout = 5 * time.Minute

	writeTimeout = 10 * time.Second
)

// Option configures the gateway handler.
type Option func(*Gateway)

// WithLogger sets the gateway logger. Sessions inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithReadBuffer sets the upgrader read buffer size.
func WithReadBuffer(size int) Option {
	return func(g *Gateway) {
		g.upgrader.ReadBufferSize = size
	}
}

// WithWriteBuffer sets the upgrader write buffer size.
func WithWriteBuffer(size int) Option {
	return func(g *Gateway) {
		g.upgrader.WriteBufferSize = size
	}
}

// WithHandshakeTimeout bounds the upgrade handshake.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.upgrader.HandshakeTimeout = timeout
	}
}

// WithOriginCheck replaces the same-origin check applied during the upgrade.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(g *Gateway) {
		g.upgrader.CheckOrigin = fn
	}
}

// WithAllowAnyOrigin disables the origin check.
func WithAllowAnyOrigin() Option {
	return WithOriginCheck(func(*http.Request) bool { return true })
}

// WithMaxMessageSize bounds a single inbound frame; larger frames close the connection.
func WithMaxMessageSize(n int64) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxMessageSize = n
		}
	}
}

// WithIdleTimeout closes connections that send no frame for d. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d >= 0 {
			g.idleTimeout = d
		}
	}
}

// WithSessionOptions passes options to every session.
func WithSessionOptions(opts ...network.Option) Option {
	return func(g *Gateway) {
		g.sessionOpts = append(g.sessionOpts, opts...)
	}
}

// WithParserOptions configures the parser built for every session.
func WithParserOptions(opts ...protocol.ParserOption) Option {
	return func(g *Gateway) {
		g.parserOpts = append(g.parserOpts, opts...)
	}
}
