//go:build linux

package server_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/protocol"
	"github.com/dmitrymomot/kvcache/core/server"
)

func startServer(t *testing.T, opts ...server.Option) (*server.Server, *cache.LRU) {
	t.Helper()

	storage := cache.NewLRU(4 << 20)
	srv := server.New("127.0.0.1:0", storage, append([]server.Option{server.WithWorkers(2)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		assert.NoError(t, srv.Stop())
		cancel()
		<-errCh
	})
	return srv, storage
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, srv *server.Server) *client {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	t.Cleanup(func() { _ = conn.Close() })

	return &client{conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) send(t *testing.T, s string) {
	t.Helper()
	_, err := c.conn.Write([]byte(s))
	require.NoError(t, err)
}

func (c *client) line(t *testing.T) string {
	t.Helper()
	l, err := c.r.ReadString('\n')
	require.NoError(t, err)
	return l
}

func TestServer_SetGet(t *testing.T) {
	t.Parallel()

	srv, storage := startServer(t)
	c := dial(t, srv)

	c.send(t, "set greeting 0 0 5\r\nhello\r\nget greeting\r\n")
	assert.Equal(t, "STORED\r\n", c.line(t))
	assert.Equal(t, "VALUE greeting 0 5\r\n", c.line(t))
	assert.Equal(t, "hello\r\n", c.line(t))
	assert.Equal(t, "END\r\n", c.line(t))

	v, ok := storage.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)
}

func TestServer_ManyClients(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)

	var wg sync.WaitGroup
	for id := range 8 {
		c := dial(t, srv)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				key := fmt.Sprintf("c%d-k%d", id, i)
				val := fmt.Sprintf("v%d", i)
				fmt.Fprintf(c.conn, "set %s 0 0 %d\r\n%s\r\nget %s\r\n", key, len(val), val, key)

				want := fmt.Sprintf("STORED\r\nVALUE %s 0 %d\r\n%s\r\nEND\r\n", key, len(val), val)
				got := make([]byte, len(want))
				if _, err := io.ReadFull(c.r, got); err != nil {
					t.Errorf("client %d: %v", id, err)
					return
				}
				if string(got) != want {
					t.Errorf("client %d: got %q, want %q", id, got, want)
					return
				}
			}
		}()
	}
	wg.Wait()

	st := srv.Stats()
	assert.True(t, st.Running)
	assert.Equal(t, int64(8), st.Accepted)
}

func TestServer_LargeValueWithBackpressure(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, server.WithMaxOutput(4096))
	c := dial(t, srv)

	value := bytes.Repeat([]byte("0123456789abcdef"), 512<<10/16)
	header := fmt.Sprintf("set big 0 0 %d\r\n", len(value))

	go func() {
		_, _ = c.conn.Write([]byte(header))
		_, _ = c.conn.Write(value)
		_, _ = c.conn.Write([]byte("\r\nget big\r\nget big\r\n"))
	}()

	assert.Equal(t, "STORED\r\n", c.line(t))
	for range 2 {
		assert.Equal(t, fmt.Sprintf("VALUE big 0 %d\r\n", len(value)), c.line(t))
		got := make([]byte, len(value)+2)
		_, err := io.ReadFull(c.r, got)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(value, got[:len(value)]), "value corrupted")
		assert.Equal(t, "END\r\n", c.line(t))
	}
}

func TestServer_HalfCloseFlushesReplies(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	c := dial(t, srv)

	c.send(t, "version\r\nget missing\r\n")
	require.NoError(t, c.conn.(*net.TCPConn).CloseWrite())

	rest, err := io.ReadAll(c.r)
	require.NoError(t, err)
	assert.Equal(t, "VERSION 1.0.0\r\nEND\r\n", string(rest))
}

func TestServer_Quit(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	c := dial(t, srv)

	c.send(t, "get a\r\nquit\r\n")
	rest, err := io.ReadAll(c.r)
	require.NoError(t, err)
	assert.Equal(t, "END\r\n", string(rest))
}

func TestServer_IdleTimeout(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, server.WithIdleTimeout(100*time.Millisecond))
	c := dial(t, srv)

	// a data block shorter than declared leaves the session waiting forever
	c.send(t, "set a 0 0 10\r\nabc")

	_, err := c.r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.Eventually(t, func() bool { return srv.Stats().Active == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_SubMillisecondIdleTimeout(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, server.WithIdleTimeout(500*time.Microsecond))
	c := dial(t, srv)

	_, err := c.r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.Eventually(t, func() bool { return srv.Stats().Active == 0 }, 2*time.Second, 10*time.Millisecond)
}

type panicCommand struct{}

func (panicCommand) Name() string { return "boom" }

func (panicCommand) Execute(cache.Storage, []byte) (string, error) { panic("boom") }

func TestServer_PanickingSessionIsDropped(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, server.WithWorkers(1), server.WithParserOptions(
		protocol.WithCommand("boom", func([]string) (protocol.Command, int, error) {
			return panicCommand{}, protocol.NoData, nil
		}),
	))

	healthy := dial(t, srv)
	healthy.send(t, "set a 0 0 1\r\nx\r\n")
	assert.Equal(t, "STORED\r\n", healthy.line(t))

	broken := dial(t, srv)
	broken.send(t, "boom\r\n")
	_, err := broken.r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)

	// the loop that owned the broken session keeps serving its other connections
	healthy.send(t, "get a\r\n")
	assert.Equal(t, "VALUE a 0 1\r\n", healthy.line(t))
	assert.Equal(t, "x\r\n", healthy.line(t))
	assert.Equal(t, "END\r\n", healthy.line(t))

	st := srv.Stats()
	assert.Equal(t, int64(1), st.Panics)
	assert.True(t, st.Running)
}

func TestServer_StopClosesConnections(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	c := dial(t, srv)

	c.send(t, "version\r\n")
	assert.Equal(t, "VERSION 1.0.0\r\n", c.line(t))
	require.Eventually(t, func() bool { return srv.Stats().Active == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Stop())
	assert.Nil(t, srv.Addr())

	_, err := c.r.ReadByte()
	assert.Error(t, err)

	st := srv.Stats()
	assert.False(t, st.Running)
	assert.Zero(t, st.Active)
	assert.Equal(t, int64(1), st.Closed)
}

func TestServer_StartTwice(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	assert.ErrorIs(t, srv.Start(context.Background()), server.ErrServerAlreadyRunning)
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0", cache.NewLRU(1024), server.WithWorkers(1))

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(gctx))

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	c := dial(t, srv)
	c.send(t, "version\r\n")
	assert.Equal(t, "VERSION 1.0.0\r\n", c.line(t))

	cancel()
	require.NoError(t, g.Wait())
	assert.False(t, srv.Stats().Running)
}
