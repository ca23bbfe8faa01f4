// Package logger provides structured logging utilities built on Go's standard slog package.
// It offers environment-specific presets, context-aware attribute extraction and a set of
// pre-built attributes for the cache server's components.
//
// # Features
//
//   - Built on Go's standard slog for compatibility and performance
//   - Environment presets (development, production)
//   - Text and JSON output formats
//   - Handler decoration for automatic context attribute injection
//   - Attribute helpers with nil safety
//   - Config struct with environment variable tags
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/kvcache/core/logger"
//
//	// Development: text format, debug level
//	log := logger.New(logger.WithDevelopment("kvcache"))
//
//	// Production: JSON format, info level
//	log := logger.New(logger.WithProduction("kvcache"))
//
//	// From environment (LOG_LEVEL, LOG_FORMAT, LOG_SERVICE)
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg)
//
// # Context-Aware Logging
//
//	log := logger.New(
//		logger.WithProduction("kvcache"),
//		logger.WithContextValue("session_id", sessionKey{}),
//	)
//
//	log.InfoContext(ctx, "command executed")
//	// {"level":"INFO","msg":"command executed","session_id":"..."}
//
// # Attribute Helpers
//
//	log.Error("read failed",
//		logger.Component("network"),
//		logger.SessionID(id),
//		logger.Error(err),
//	)
//
//	log.Debug("entry evicted",
//		logger.Component("cache"),
//		logger.CacheKey(key),
//		logger.Size(n),
//	)
//
// Helpers returning an empty slog.Attr for nil or empty input (Error, Errors, ID,
// WorkerID, SessionID, RemoteAddr, Command, Key, Panic) are dropped by slog, so callers
// never need nil checks.
//
// Libraries in this module default to a discard logger; pass one in with the package's
// WithLogger option to see their output.
package logger
