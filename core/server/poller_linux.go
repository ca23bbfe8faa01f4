//go:build linux

package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dmitrymomot/kvcache/core/logger"
	"github.com/dmitrymomot/kvcache/core/network"
)

// poller is one event loop: an epoll instance, an eventfd used to wake it and the
// sessions it owns. Sessions are touched only by the goroutine running run.
type poller struct {
	id     int
	srv    *Server
	errCh  chan<- error
	epfd   int
	wakefd int

	mu      sync.Mutex
	pending []*fdConn
	closed  bool

	conns map[int]*entry
}

type entry struct {
	conn   *fdConn
	sess   *network.Session
	events network.Event
}

func newPoller(id int, srv *Server, errCh chan<- error) (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add eventfd: %w", err)
	}

	return &poller{
		id:     id,
		srv:    srv,
		errCh:  errCh,
		epfd:   epfd,
		wakefd: wakefd,
		conns:  make(map[int]*entry),
	}, nil
}

// add takes ownership of conn and queues it for registration by the event loop.
func (p *poller) add(conn net.Conn) error {
	fd, err := detach(conn)
	if err != nil {
		return err
	}
	c := &fdConn{fd: fd, remote: conn.RemoteAddr().String()}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = unix.Close(fd)
		return ErrServerClosed
	}
	p.pending = append(p.pending, c)
	p.mu.Unlock()

	p.wake()
	return nil
}

// close asks the event loop to drop every connection and exit.
func (p *poller) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wake()
}

func (p *poller) wake() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(p.wakefd, buf[:])
}

func (p *poller) run() {
	log := p.srv.logger.With(logger.Component("server"), logger.Count("loop", p.id))
	log.Debug("event loop started")
	defer p.release()
	defer func() {
		if r := recover(); r != nil {
			log.Error("event loop panicked", logger.Panic(r), logger.Stack())
			p.report(fmt.Errorf("%w: %v", ErrLoopPanic, r))
		}
	}()

	events := make([]unix.EpollEvent, maxEvents)
	wait := -1
	if p.srv.idleTimeout > 0 {
		wait = max(1, int(min(p.srv.idleTimeout, sweepInterval)/time.Millisecond))
	}
	lastSweep := time.Now()

	for {
		n, err := unix.EpollWait(p.epfd, events, wait)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			log.Error("epoll_wait failed", logger.Error(err))
			p.report(err)
			return
		}

		for i := range n {
			fd := int(events[i].Fd)
			if fd == p.wakefd {
				p.drainWake()
				if p.register() {
					log.Debug("event loop stopped")
					return
				}
				continue
			}
			if e, ok := p.conns[fd]; ok {
				p.dispatch(e, events[i].Events)
			}
		}

		if wait > 0 && time.Since(lastSweep) >= time.Duration(wait)*time.Millisecond {
			p.sweep(time.Now())
			lastSweep = time.Now()
		}
	}
}

func (p *poller) report(err error) {
	select {
	case p.errCh <- fmt.Errorf("%w: loop %d: %w", ErrEventLoop, p.id, err):
	default:
	}
}

func (p *poller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakefd, buf[:])
}

// register adds queued connections. It reports true once the poller is closed.
func (p *poller) register() bool {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	closed := p.closed
	p.mu.Unlock()

	for _, c := range pending {
		if closed {
			_ = unix.Close(c.fd)
			continue
		}

		e := &entry{conn: c, sess: p.srv.newSession(c), events: network.EventRead}
		ev := unix.EpollEvent{Events: epollEvents(e.events), Fd: int32(c.fd)}
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, c.fd, &ev); err != nil {
			p.srv.logger.Warn("epoll_ctl add failed",
				logger.Component("server"),
				logger.FD(c.fd),
				logger.Error(err))
			_ = unix.Close(c.fd)
			continue
		}
		p.conns[c.fd] = e
		p.srv.active.Add(1)

		p.srv.logger.Debug("connection accepted",
			logger.Component("server"),
			logger.FD(c.fd),
			logger.RemoteAddr(c.remote),
			logger.SessionID(e.sess.ID()))
	}
	return closed
}

func (p *poller) dispatch(e *entry, ev uint32) {
	defer func() {
		if r := recover(); r != nil {
			// one broken session must not take the loop and its other connections down
			p.srv.logger.Error("session panicked",
				logger.Component("server"),
				logger.SessionID(e.sess.ID()),
				logger.Panic(r),
				logger.Stack())
			p.srv.panics.Add(1)
			if p.conns[e.conn.fd] == e {
				p.remove(e)
			}
		}
	}()

	switch {
	case ev&unix.EPOLLERR != 0:
		e.sess.OnError(socketError(e.conn.fd))
	default:
		if ev&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
			e.sess.OnRead()
		}
		// replies produced by the read are usually writable right away
		if e.sess.Alive() && (ev&unix.EPOLLOUT != 0 || e.sess.Pending() > 0) {
			e.sess.OnWrite()
		}
	}
	p.rearm(e)
}

// rearm sets epoll interest to what the session asks for, or drops a dead session.
func (p *poller) rearm(e *entry) {
	if !e.sess.Alive() {
		p.remove(e)
		return
	}

	want := e.sess.Events()
	if want == e.events {
		return
	}
	ev := unix.EpollEvent{Events: epollEvents(want), Fd: int32(e.conn.fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, e.conn.fd, &ev); err != nil {
		e.sess.OnError(err)
		p.remove(e)
		return
	}
	e.events = want
}

func (p *poller) remove(e *entry) {
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, e.conn.fd, nil)
	_ = unix.Close(e.conn.fd)
	delete(p.conns, e.conn.fd)
	p.srv.active.Add(-1)
	p.srv.closed.Add(1)

	st := e.sess.Stats()
	p.srv.logger.Debug("connection closed",
		logger.Component("server"),
		logger.FD(e.conn.fd),
		logger.SessionID(e.sess.ID()),
		logger.Count("commands", int(st.Commands)),
		logger.BytesIn(int(st.BytesIn)),
		logger.BytesOut(int(st.BytesOut)))
}

// sweep closes sessions that made no progress within the idle timeout.
func (p *poller) sweep(now time.Time) {
	for _, e := range p.conns {
		if now.Sub(e.sess.LastActivity()) < p.srv.idleTimeout {
			continue
		}
		p.srv.logger.Debug("closing idle connection",
			logger.Component("server"),
			logger.SessionID(e.sess.ID()),
			logger.Timeout(p.srv.idleTimeout))
		e.sess.OnClose()
		p.remove(e)
	}
}

// release closes every connection and the poller's own descriptors.
func (p *poller) release() {
	for _, e := range p.conns {
		e.sess.OnClose()
		p.remove(e)
	}

	p.mu.Lock()
	p.closed = true
	for _, c := range p.pending {
		_ = unix.Close(c.fd)
	}
	p.pending = nil
	p.mu.Unlock()

	_ = unix.Close(p.wakefd)
	_ = unix.Close(p.epfd)
}

func epollEvents(ev network.Event) uint32 {
	var out uint32
	if ev.Has(network.EventRead) {
		out |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if ev.Has(network.EventWrite) {
		out |= unix.EPOLLOUT
	}
	return out
}

func socketError(fd int) error {
	code, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if code == 0 {
		return io.ErrUnexpectedEOF
	}
	return syscall.Errno(code)
}

// detach duplicates the socket out of the Go runtime poller and closes the original,
// leaving a close-on-exec, non-blocking descriptor owned by the caller.
func detach(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1, ErrUnsupportedConn
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	fd := -1
	var dupErr error
	if err := raw.Control(func(s uintptr) {
		fd, dupErr = unix.FcntlInt(s, unix.F_DUPFD_CLOEXEC, 0)
	}); err != nil {
		return -1, err
	}
	_ = conn.Close()
	if dupErr != nil {
		return -1, fmt.Errorf("dup socket: %w", dupErr)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// fdConn adapts a raw non-blocking socket to network.Conn.
type fdConn struct {
	fd     int
	remote string
}

func (c *fdConn) Read(b []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, b)
		switch {
		case err == nil && n == 0 && len(b) > 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, network.ErrWouldBlock
		default:
			return 0, err
		}
	}
}

func (c *fdConn) Write(b []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, b)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, network.ErrWouldBlock
		default:
			return 0, err
		}
	}
}
