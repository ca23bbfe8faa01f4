package httpserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/kvcache/httpserver"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func waitAddr(t *testing.T, srv *httpserver.Server) string {
	t.Helper()
	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != nil
	}, 2*time.Second, 5*time.Millisecond)
	return addr.String()
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	srv := httpserver.New("127.0.0.1:0", httpserver.WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(gctx, okHandler()))

	addr := waitAddr(t, srv)
	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok", string(body))

	cancel()
	require.NoError(t, g.Wait())
	assert.Nil(t, srv.Addr())
}

func TestServer_StartTwice(t *testing.T) {
	t.Parallel()

	srv := httpserver.New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Start(ctx, okHandler()) }()
	waitAddr(t, srv)

	err := srv.Start(ctx, okHandler())
	assert.ErrorIs(t, err, httpserver.ErrServerAlreadyRunning)

	require.NoError(t, srv.Stop())
}

func TestServer_StartBindFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := httpserver.New(ln.Addr().String())
	err = srv.Start(context.Background(), okHandler())
	assert.ErrorIs(t, err, httpserver.ErrStart)
	assert.Nil(t, srv.Addr())
}

func TestServer_StopWhenNotRunning(t *testing.T) {
	t.Parallel()

	srv := httpserver.New("127.0.0.1:0")
	assert.NoError(t, srv.Stop())
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		srv, err := httpserver.NewFromConfig(httpserver.DefaultConfig())
		require.NoError(t, err)
		assert.NotNil(t, srv)
	})

	t.Run("missing address", func(t *testing.T) {
		_, err := httpserver.NewFromConfig(httpserver.Config{})
		assert.ErrorIs(t, err, httpserver.ErrMissingAddress)
	})

	t.Run("unreadable TLS files", func(t *testing.T) {
		cfg := httpserver.DefaultConfig()
		cfg.TLSCertFile = "/nonexistent/cert.pem"
		cfg.TLSKeyFile = "/nonexistent/key.pem"
		_, err := httpserver.NewFromConfig(cfg)
		assert.Error(t, err)
	})
}
