// Package kvcache composes the cache server from its parts: a storage backend (the
// in-process LRU or Redis), the epoll protocol server, the WebSocket gateway and the
// admin HTTP server with health and statistics endpoints.
//
//	app, err := kvcache.New(ctx)
//	if err != nil {
//		return err
//	}
//	return app.Run(ctx)
//
// Admin routes:
//
//	GET /health/live   liveness probe
//	GET /health/ready  readiness probe (pings Redis when it is the backend)
//	GET /ping          204 No Content
//	GET /stats         JSON counters of every component
//	GET /ws            WebSocket gateway speaking the cache protocol
package kvcache
