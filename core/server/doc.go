// Package server runs the cache protocol over TCP on Linux epoll event loops.
//
// The server owns a fixed number of event loops. Each loop has its own epoll instance
// and an eventfd used to wake it, and serves the connections assigned to it by the
// acceptor in round-robin order. Loops and acceptor run as long-lived tasks on a
// core/executor Executor sized to them.
//
// Every connection is driven by a network.Session. Interest is level-triggered and is
// re-armed after each callback to exactly what the session reports through Events, so
// write readiness is only requested while replies are pending and read readiness is
// dropped under backpressure.
//
// # Usage
//
//	storage := cache.NewLRU(64 << 20)
//	srv := server.New(":11211", storage,
//		server.WithWorkers(4),
//		server.WithIdleTimeout(5*time.Minute),
//		server.WithLogger(log),
//	)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx))
//	if err := g.Wait(); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Or from environment variables:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//	srv, err := server.NewFromConfig(cfg, storage, server.WithLogger(log))
//
// # Idle connections
//
// A connection that neither reads nor writes for the idle timeout is closed. This also
// releases clients stuck mid-request, for example a data block shorter than declared.
//
// On platforms other than Linux, Start returns ErrUnsupportedPlatform.
package server
