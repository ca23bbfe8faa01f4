package network

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/logger"
	"github.com/dmitrymomot/kvcache/core/protocol"
)

// State is the request state of a session.
type State int

const (
	StateAwaitingCommand State = iota
	StateAwaitingArgument
	StateExecutingReady
)

func (s State) String() string {
	switch s {
	case StateAwaitingCommand:
		return "awaiting_command"
	case StateAwaitingArgument:
		return "awaiting_argument"
	case StateExecutingReady:
		return "executing_ready"
	default:
		return "unknown"
	}
}

// Stats holds per-session counters.
type Stats struct {
	BytesIn  int64 `json:"bytes_in"`
	BytesOut int64 `json:"bytes_out"`
	Commands int64 `json:"commands"`
}

// Session drives one client connection: it drains readable bytes, parses and executes
// commands against the storage and buffers replies until the socket is writable.
//
// A session is owned by a single event loop and is not safe for concurrent use.
type Session struct {
	id        string
	conn      Conn
	storage   cache.Storage
	parser    protocol.Parser
	logger    *slog.Logger
	readBuf   []byte
	maxOutput int

	in  []byte // received, not yet consumed
	out []byte // replies not yet written

	state     State
	cmd       protocol.Command
	arg       []byte
	remaining int  // data block bytes still expected, trailer included
	discard   bool // skip the data block instead of buffering it

	alive   bool
	closing bool // no more reads; close once output is flushed
	halted  bool // no more commands are executed

	stats        Stats
	lastActivity time.Time
}

// NewSession creates a live session over conn.
func NewSession(conn Conn, storage cache.Storage, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		conn:         conn,
		storage:      storage,
		logger:       logger.Noop(),
		readBuf:      make([]byte, DefaultReadBufferSize),
		alive:        true,
		lastActivity: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = protocol.NewParser()
	}
	return s
}

// OnRead drains the connection until it would block, reaches end of stream or fails,
// executing every complete command found along the way.
func (s *Session) OnRead() {
	for s.alive && !s.closing && !s.throttled() {
		if !s.readOnce() {
			break
		}
	}
	s.finishIfDrained()
}

// readOnce performs one read and reports whether reading should continue.
func (s *Session) readOnce() bool {
	n, err := s.conn.Read(s.readBuf)
	if n > 0 {
		s.in = append(s.in, s.readBuf[:n]...)
		s.stats.BytesIn += int64(n)
		s.lastActivity = time.Now()
		s.process()
	}

	switch {
	case err == nil:
		return n > 0
	case errors.Is(err, ErrWouldBlock):
		return false
	case errors.Is(err, io.EOF):
		s.logger.Debug("peer closed connection",
			logger.Component("network"),
			logger.SessionID(s.id),
			logger.Count("pending", len(s.out)))
		s.closing = true
		return false
	default:
		s.OnError(err)
		return false
	}
}

// OnWrite sends as much pending output as one write accepts. Buffered input held back
// by backpressure is processed once output drops below the high-water mark.
func (s *Session) OnWrite() {
	if !s.alive {
		return
	}

	if len(s.out) > 0 {
		n, err := s.conn.Write(s.out)
		if n > 0 {
			m := copy(s.out, s.out[n:])
			s.out = s.out[:m]
			s.stats.BytesOut += int64(n)
			s.lastActivity = time.Now()
		}
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			s.OnError(err)
			return
		}
	}

	s.process()
	s.finishIfDrained()
}

// OnError marks the session dead and discards buffered output.
func (s *Session) OnError(err error) {
	if !s.alive {
		return
	}
	s.logger.Warn("connection fault",
		logger.Component("network"),
		logger.SessionID(s.id),
		logger.Error(err),
		logger.Count("discarded", len(s.out)))
	s.terminate()
}

// OnClose marks the session dead without flushing.
func (s *Session) OnClose() {
	if !s.alive {
		return
	}
	s.logger.Debug("session closed",
		logger.Component("network"),
		logger.SessionID(s.id),
		logger.BytesIn(int(s.stats.BytesIn)),
		logger.BytesOut(int(s.stats.BytesOut)))
	s.terminate()
}

// Alive reports whether the connection should stay registered.
func (s *Session) Alive() bool { return s.alive }

// Events returns the readiness interest the event loop should arm for this session.
func (s *Session) Events() Event {
	if !s.alive {
		return 0
	}
	var ev Event
	if !s.closing && !s.throttled() {
		ev |= EventRead
	}
	if len(s.out) > 0 {
		ev |= EventWrite
	}
	return ev
}

// Pending returns the number of reply bytes waiting to be written.
func (s *Session) Pending() int { return len(s.out) }

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current request state.
func (s *Session) State() State { return s.state }

// Stats returns the session counters.
func (s *Session) Stats() Stats { return s.stats }

// LastActivity returns the time of the last successful read or write.
func (s *Session) LastActivity() time.Time { return s.lastActivity }

func (s *Session) throttled() bool {
	return s.maxOutput > 0 && len(s.out) >= s.maxOutput
}

// process advances the state machine over buffered input until it needs more bytes,
// hits the output high-water mark or the session stops.
func (s *Session) process() {
	for s.alive && !s.halted && !s.throttled() {
		switch s.state {
		case StateAwaitingCommand:
			if len(s.in) == 0 {
				return
			}
			if !s.parseHeader() {
				return
			}

		case StateAwaitingArgument:
			if len(s.in) == 0 {
				return
			}
			k := min(s.remaining, len(s.in))
			if !s.discard {
				s.arg = append(s.arg, s.in[:k]...)
			}
			s.consume(k)
			s.remaining -= k
			if s.remaining > 0 {
				return
			}
			s.state = StateExecutingReady

		case StateExecutingReady:
			s.execute()
		}
	}
}

// parseHeader feeds buffered input to the parser and reports whether progress was made.
func (s *Session) parseHeader() bool {
	n, done, err := s.parser.Parse(s.in)
	if err != nil {
		// framing is lost; report and close once the reply is flushed
		s.reply(protocol.FormatError(err))
		s.logger.Debug("unrecoverable protocol error",
			logger.Component("network"),
			logger.SessionID(s.id),
			logger.Error(err))
		s.halt()
		return false
	}
	s.consume(n)
	if !done {
		return n > 0
	}

	cmd, argLen, err := s.parser.Build()
	if err != nil {
		s.reply(protocol.FormatError(err))
		s.parser.Reset()
		return true
	}

	if argLen == protocol.NoData {
		s.cmd = cmd
		s.state = StateExecutingReady
		return true
	}
	if argLen < 0 || argLen > math.MaxInt-2 {
		// the block cannot be framed, so nothing after this header can be trusted
		s.reply(protocol.FormatError(protocol.ErrBadDataChunk))
		s.halt()
		return false
	}

	s.cmd = cmd
	s.remaining = argLen + 2
	if d, ok := cmd.(protocol.Discard); ok && d.Discard() {
		s.discard = true
	} else {
		s.arg = make([]byte, 0, min(s.remaining, DefaultReadBufferSize))
	}
	s.state = StateAwaitingArgument
	return true
}

func (s *Session) execute() {
	arg := s.arg
	if len(arg) >= 2 {
		arg = arg[:len(arg)-2]
	}

	result, err := s.cmd.Execute(s.storage, arg)
	if err != nil {
		result = protocol.FormatError(err)
		s.logger.Debug("command failed",
			logger.Component("network"),
			logger.SessionID(s.id),
			logger.Command(s.cmd.Name()),
			logger.Error(err))
	}

	if q, ok := s.cmd.(protocol.Quiet); !ok || !q.Quiet() {
		s.reply(result)
	}
	if t, ok := s.cmd.(protocol.Terminal); ok && t.Terminal() {
		s.halt()
	}

	s.stats.Commands++
	s.cmd = nil
	s.arg = nil
	s.remaining = 0
	s.discard = false
	s.state = StateAwaitingCommand
	s.parser.Reset()
}

func (s *Session) reply(line string) {
	s.out = append(s.out, line...)
	s.out = append(s.out, '\r', '\n')
}

func (s *Session) consume(n int) {
	if n <= 0 {
		return
	}
	m := copy(s.in, s.in[n:])
	s.in = s.in[:m]
}

// halt stops reading and executing; buffered input is dropped.
func (s *Session) halt() {
	s.halted = true
	s.closing = true
	s.in = s.in[:0]
}

func (s *Session) finishIfDrained() {
	if s.alive && s.closing && len(s.out) == 0 {
		s.OnClose()
	}
}

func (s *Session) terminate() {
	s.alive = false
	s.out = nil
	s.in = nil
	s.cmd = nil
	s.arg = nil
}
