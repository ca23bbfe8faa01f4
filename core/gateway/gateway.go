package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/logger"
	"github.com/dmitrymomot/kvcache/core/network"
	"github.com/dmitrymomot/kvcache/core/protocol"
)

// Stats holds gateway counters.
type Stats struct {
	Accepted int64 `json:"accepted"`
	Active   int64 `json:"active"`
	Rejected int64 `json:"rejected"` // failed upgrades
}

// Gateway serves the cache protocol over WebSocket. Every inbound frame is fed to a
// per-connection session; the replies it produces are sent back as a single frame of
// the same type. Safe for concurrent use.
type Gateway struct {
	storage        cache.Storage
	upgrader       websocket.Upgrader
	logger         *slog.Logger
	maxMessageSize int64
	idleTimeout    time.Duration
	sessionOpts    []network.Option
	parserOpts     []protocol.ParserOption

	accepted atomic.Int64
	active   atomic.Int64
	rejected atomic.Int64
}

// New creates a Gateway over storage.
func New(storage cache.Storage, opts ...Option) *Gateway {
	g := &Gateway{
		storage: storage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  network.DefaultReadBufferSize,
			WriteBufferSize: network.DefaultReadBufferSize,
		},
		logger:         logger.Noop(),
		maxMessageSize: DefaultMaxMessageSize,
		idleTimeout:    DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns an http.Handler serving the cache protocol over WebSocket.
func Handler(storage cache.Storage, opts ...Option) http.Handler {
	return New(storage, opts...)
}

// Stats returns current gateway counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		Accepted: g.accepted.Load(),
		Active:   g.active.Load(),
		Rejected: g.rejected.Load(),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.rejected.Add(1)
		g.logger.DebugContext(r.Context(), "websocket upgrade failed",
			logger.Component("gateway"),
			logger.RemoteAddr(r.RemoteAddr),
			logger.Error(err))
		return
	}
	defer ws.Close()

	g.accepted.Add(1)
	g.active.Add(1)
	defer g.active.Add(-1)

	ws.SetReadLimit(g.maxMessageSize)

	conn := &frameConn{}
	opts := append([]network.Option{
		network.WithLogger(g.logger),
		network.WithParser(protocol.NewParser(g.parserOpts...)),
	}, g.sessionOpts...)
	sess := network.NewSession(conn, g.storage, opts...)

	g.logger.DebugContext(r.Context(), "websocket session opened",
		logger.Component("gateway"),
		logger.SessionID(sess.ID()),
		logger.RemoteAddr(r.RemoteAddr))

	peerGone := false
	for sess.Alive() {
		if g.idleTimeout > 0 {
			_ = ws.SetReadDeadline(time.Now().Add(g.idleTimeout))
		}

		msgType, data, err := ws.ReadMessage()
		if err != nil {
			peerGone = true
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				conn.eof = true
				pump(sess, conn)
				sess.OnClose()
			} else {
				sess.OnError(err)
			}
			break
		}

		conn.feed(data)
		pump(sess, conn)

		if out := conn.flush(); len(out) > 0 {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(msgType, out); err != nil {
				peerGone = true
				sess.OnError(err)
				break
			}
		}
	}

	// the session ended on its own (quit or a protocol error)
	if !peerGone {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}

	st := sess.Stats()
	g.logger.DebugContext(r.Context(), "websocket session closed",
		logger.Component("gateway"),
		logger.SessionID(sess.ID()),
		logger.Count("commands", int(st.Commands)),
		logger.BytesIn(int(st.BytesIn)),
		logger.BytesOut(int(st.BytesOut)))
}

// pump runs the session until it has consumed all buffered input and flushed every
// reply into conn.
func pump(sess *network.Session, conn *frameConn) {
	for sess.Alive() {
		ev := sess.Events()
		switch {
		case ev.Has(network.EventWrite):
			sess.OnWrite()
		case ev.Has(network.EventRead) && conn.readable():
			sess.OnRead()
		default:
			return
		}
	}
}
