package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/executor"
	"github.com/dmitrymomot/kvcache/core/logger"
	"github.com/dmitrymomot/kvcache/core/network"
	"github.com/dmitrymomot/kvcache/core/protocol"
)

// Stats is a point-in-time view of the server.
type Stats struct {
	Addr     string         `json:"addr"`
	Running  bool           `json:"running"`
	Accepted int64          `json:"accepted"`
	Active   int64          `json:"active"`
	Closed   int64          `json:"closed"`
	Panics   int64          `json:"panics"` // sessions dropped after a panic
	Executor executor.Stats `json:"executor"`
}

// Server accepts TCP connections and serves the cache protocol from a fixed set of
// epoll event loops. The acceptor and the event loops run as tasks on an executor.
// Safe for concurrent use.
type Server struct {
	mu             sync.RWMutex
	addr           string
	storage        cache.Storage
	logger         *slog.Logger
	workers        int
	readBufferSize int
	maxOutput      int
	idleTimeout    time.Duration
	shutdown       time.Duration
	parserOpts     []protocol.ParserOption

	listener net.Listener
	pollers  []*poller
	exec     *executor.Executor
	errCh    chan error
	done     chan struct{}
	running  bool

	accepted atomic.Int64
	active   atomic.Int64
	closed   atomic.Int64
	panics   atomic.Int64
}

// New creates a new Server with the given address, storage and options.
func New(addr string, storage cache.Storage, opts ...Option) *Server {
	s := &Server{
		addr:           addr,
		storage:        storage,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:        DefaultWorkers,
		readBufferSize: network.DefaultReadBufferSize,
		maxOutput:      DefaultMaxOutput,
		idleTimeout:    DefaultIdleTimeout,
		shutdown:       DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start listens and serves until the context is canceled, Stop is called or an event
// loop fails. Returns context.Err() when the context is canceled and nil after Stop.
func (s *Server) Start(ctx context.Context) error {
	if err := s.listen(); err != nil {
		return err
	}

	s.mu.RLock()
	errCh, done := s.errCh, s.done
	s.mu.RUnlock()

	select {
	case <-done:
		return nil
	case err := <-errCh:
		if stopErr := s.Stop(); stopErr != nil {
			s.logger.Error("failed to stop server after event loop failure", logger.Error(stopErr))
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}
	if s.storage == nil {
		return ErrMissingStorage
	}

	errCh := make(chan error, s.workers)
	pollers := make([]*poller, 0, s.workers)
	closeAll := func() {
		for _, p := range pollers {
			p.close()
		}
	}
	for i := range s.workers {
		p, err := newPoller(i, s, errCh)
		if err != nil {
			closeAll()
			return err
		}
		pollers = append(pollers, p)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		closeAll()
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	// one task per event loop plus the acceptor, all long-lived
	exec, err := executor.New(
		executor.WithName("server"),
		executor.WithLowWatermark(s.workers+1),
		executor.WithHighWatermark(s.workers+1),
		executor.WithLogger(s.logger),
	)
	if err != nil {
		_ = ln.Close()
		closeAll()
		return err
	}

	s.listener = ln
	s.pollers = pollers
	s.exec = exec
	s.errCh = errCh
	s.done = make(chan struct{})
	s.running = true

	for _, p := range pollers {
		exec.Submit(p.run)
	}
	exec.Submit(func() { s.acceptLoop(ln, pollers) })

	s.logger.Info("cache server started",
		logger.Component("server"),
		logger.Addr(ln.Addr().String()),
		logger.Count("workers", s.workers),
		logger.Timeout(s.idleTimeout))

	return nil
}

// acceptLoop hands accepted connections to the event loops round-robin.
func (s *Server) acceptLoop(ln net.Listener, pollers []*poller) {
	for next := 0; ; next++ {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", logger.Component("server"), logger.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.accepted.Add(1)
		p := pollers[next%len(pollers)]
		if err := p.add(conn); err != nil {
			s.logger.Warn("failed to register connection",
				logger.Component("server"),
				logger.RemoteAddr(conn.RemoteAddr().String()),
				logger.Error(err))
			_ = conn.Close()
		}
	}
}

// newSession builds the protocol session for an accepted connection.
func (s *Server) newSession(conn network.Conn) *network.Session {
	return network.NewSession(conn, s.storage,
		network.WithParser(protocol.NewParser(s.parserOpts...)),
		network.WithReadBufferSize(s.readBufferSize),
		network.WithMaxOutput(s.maxOutput),
		network.WithLogger(s.logger),
	)
}

// Stop closes the listener and every connection, then waits for the event loops to
// exit within the shutdown timeout. Returns immediately if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("shutting down cache server", logger.Timeout(s.shutdown))

	err := s.listener.Close()
	for _, p := range s.pollers {
		p.close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	shutdownErr := s.exec.Shutdown(ctx)
	s.running = false
	close(s.done)

	if err = errors.Join(ignoreClosed(err), shutdownErr); err != nil {
		s.logger.Error("cache server shutdown error", logger.Error(err))
		return err
	}

	s.logger.Info("cache server shutdown complete",
		logger.Count("accepted", int(s.accepted.Load())))
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Returns a function that starts the server, monitors context cancellation,
// and performs graceful shutdown when the context is cancelled.
func (s *Server) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			if stopErr := s.Stop(); stopErr != nil {
				s.logger.Error("failed to stop server during context cancellation", logger.Error(stopErr))
			}
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Addr returns the listener address, or nil when the server is not running.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns current server statistics.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	st := Stats{
		Addr:    s.addr,
		Running: s.running,
	}
	if s.running {
		st.Addr = s.listener.Addr().String()
	}
	exec := s.exec
	s.mu.RUnlock()

	if exec != nil {
		st.Executor = exec.Stats()
	}
	st.Accepted = s.accepted.Load()
	st.Active = s.active.Load()
	st.Closed = s.closed.Load()
	st.Panics = s.panics.Load()
	return st
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
