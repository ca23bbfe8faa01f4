// Package httpserver runs the admin HTTP surface of the cache server: health probes,
// runtime statistics and the WebSocket gateway.
//
// Server wraps http.Server with graceful shutdown and an errgroup-friendly Run:
//
//	srv, err := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, mux))
//	return g.Wait()
//
// Configuration comes from ADMIN_* environment variables; see Config.
package httpserver
