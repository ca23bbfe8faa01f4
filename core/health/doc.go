// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All dependencies are available
//   - NoContent: Returns 204 for minimal overhead
//   - Stats: Runtime statistics as JSON
//
// Usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /health/live", health.Liveness)
//	mux.Handle("GET /health/ready", health.Readiness(log,
//		redis.Healthcheck(client),
//	))
//	mux.Handle("GET /stats", health.Stats(func() any { return srv.Stats() }))
//
// Dependency checks must follow func(context.Context) error signature:
//
//	func checkRedis(ctx context.Context) error {
//		return client.Ping(ctx).Err()
//	}
package health
