// Package redis provides Redis client initialization, health checking and a
// cache.Storage backend for the cache server.
//
// # Key Features
//
//   - Connect: Creates a Redis client with exponential retry logic and connection verification
//   - Healthcheck: Returns a health check function for readiness probes
//   - Storage: Serves protocol commands from Redis instead of the in-process LRU
//
// Connection establishment validates the Redis URL format, attempts connection with retries,
// and verifies connectivity with a ping before returning the client.
//
// # Configuration
//
//	type Config struct {
//		ConnectionURL    string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
//		RetryAttempts    int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval    time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
//		ConnectTimeout   time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
//		KeyPrefix        string        `env:"REDIS_KEY_PREFIX" envDefault:"kvcache:"`
//		OperationTimeout time.Duration `env:"REDIS_OPERATION_TIMEOUT" envDefault:"1s"`
//	}
//
// Both redis:// and rediss:// (TLS) URL schemes are accepted.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	storage := redis.NewStorageFromConfig(client, cfg,
//		redis.WithCapacity(1<<20),
//		redis.WithLogger(log),
//	)
//	srv := server.New(":11211", storage)
//
// Storage maps set to SET, add to SET NX, replace to SET XX, delete to DEL and get to
// GET. Entries are stored without expiry; eviction is the server's maxmemory policy.
// Read-modify-write commands (append, prepend, incr, decr) are not atomic against
// other clients of the same keys.
//
// # Error Handling
//
//   - ErrFailedToParseRedisConnString: Returned when the Redis connection URL is malformed
//   - ErrRedisNotReady: Returned when Redis doesn't become ready within the retry budget
//   - ErrEmptyConnectionURL: Returned when no connection URL is provided
//   - ErrHealthcheckFailed: Returned when health check ping fails
//
// Storage methods never return errors; failures are logged, counted in Stats and
// reported as an unsuccessful operation.
package redis
