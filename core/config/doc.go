// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/kvcache/core/config"
//
//	func main() {
//		var srv server.Config
//
//		// Load with error handling
//		if err := config.Load(&srv); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		var exec executor.Config
//		config.MustLoad(&exec)
//	}
//
// Package Config structs (server.Config, executor.Config, logger.Config, redis.Config,
// httpserver.Config) carry their own env tags and defaults, so a composite struct of
// them loads the whole application configuration in one call.
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 server.Config
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 server.Config
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently:
//
//	// Each type has its own cache entry
//	config.MustLoad(&server.Config{})
//	config.MustLoad(&redis.Config{})
package config
