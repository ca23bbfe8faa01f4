package kvcache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/config"
	"github.com/dmitrymomot/kvcache/core/gateway"
	"github.com/dmitrymomot/kvcache/core/health"
	"github.com/dmitrymomot/kvcache/core/logger"
	"github.com/dmitrymomot/kvcache/core/protocol"
	"github.com/dmitrymomot/kvcache/core/server"
	"github.com/dmitrymomot/kvcache/httpserver"
	"github.com/dmitrymomot/kvcache/integration/database/redis"
)

const slowRequest = time.Second

// App wires the storage backend, the cache server and the admin surface together.
type App struct {
	config  Config
	logger  *slog.Logger
	storage cache.Storage
	checks  []health.Check

	lru         *cache.LRU
	redisStore  *redis.Storage
	redisClient *goredis.Client

	server  *server.Server
	admin   *httpserver.Server
	gateway *gateway.Gateway

	configured bool
}

// AppOption customizes the App before its components are built.
type AppOption func(*App) error

// New builds the application. Configuration is loaded from the environment unless
// WithConfig is given. Connecting to Redis honours ctx.
func New(ctx context.Context, opts ...AppOption) (*App, error) {
	app := &App{}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if !app.configured {
		if err := config.Load(&app.config); err != nil {
			return nil, err
		}
	}
	if app.logger == nil {
		app.logger = logger.NewFromConfig(app.config.Log,
			logger.WithContextExtractors(httpserver.RequestIDExtractor()))
	}

	if app.storage == nil {
		if err := app.initStorage(ctx); err != nil {
			return nil, err
		}
	}

	parserOpts := []protocol.ParserOption{
		protocol.WithMaxLineLength(app.config.Server.MaxLineLength),
		protocol.WithMaxValueSize(app.config.Server.MaxValueSize),
	}

	srv, err := server.NewFromConfig(app.config.Server, app.storage, server.WithLogger(app.logger))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.server = srv

	app.gateway = gateway.New(app.storage,
		gateway.WithLogger(app.logger),
		gateway.WithIdleTimeout(app.config.Server.IdleTimeout),
		gateway.WithParserOptions(parserOpts...),
	)

	if app.config.AdminEnabled {
		admin, err := httpserver.NewFromConfig(app.config.Admin, httpserver.WithLogger(app.logger))
		if err != nil {
			app.Close()
			return nil, err
		}
		app.admin = admin
	}

	return app, nil
}

func (app *App) initStorage(ctx context.Context) error {
	switch app.config.Backend {
	case "", BackendLRU:
		if app.config.Capacity <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCapacity, app.config.Capacity)
		}
		app.lru = cache.NewLRU(app.config.Capacity, cache.WithLogger(app.logger))
		app.storage = app.lru

	case BackendRedis:
		client, err := redis.Connect(ctx, app.config.Redis)
		if err != nil {
			return err
		}
		app.redisClient = client
		app.redisStore = redis.NewStorageFromConfig(client, app.config.Redis,
			redis.WithCapacity(app.config.Capacity),
			redis.WithLogger(app.logger))
		app.storage = app.redisStore
		app.checks = append(app.checks, redis.Healthcheck(client))

	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, app.config.Backend)
	}

	app.logger.InfoContext(ctx, "storage initialized",
		logger.Component("app"),
		slog.String("backend", app.config.Backend),
		logger.Count("capacity", app.config.Capacity))
	return nil
}

// Run serves until ctx is canceled or a server fails, then shuts everything down.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(app.server.Run(ctx))
	if app.admin != nil {
		g.Go(app.admin.Run(ctx, app.Handler()))
	}

	err := g.Wait()
	app.logger.Info("application stopped", logger.Component("app"), logger.Error(err))
	return err
}

// Handler returns the admin routes.
func (app *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.Handle("GET /health/ready", health.Readiness(app.logger, app.checks...))
	mux.HandleFunc("GET /ping", health.NoContent)
	mux.Handle("GET /stats", health.Stats(func() any { return app.Stats() }))
	mux.Handle("GET /ws", app.gateway)

	return httpserver.Chain(mux,
		httpserver.RequestID(),
		httpserver.Logging(app.logger, slowRequest, isProbe),
	)
}

func isProbe(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/health/") || r.URL.Path == "/ping"
}

// Stats is the payload of the /stats endpoint.
type Stats struct {
	Backend string              `json:"backend"`
	Server  server.Stats        `json:"server"`
	Gateway gateway.Stats       `json:"gateway"`
	Cache   *cache.Stats        `json:"cache,omitempty"`
	Redis   *redis.StorageStats `json:"redis,omitempty"`
}

// Stats returns a snapshot of every component's counters.
func (app *App) Stats() Stats {
	st := Stats{
		Backend: app.config.Backend,
		Server:  app.server.Stats(),
		Gateway: app.gateway.Stats(),
	}
	if app.lru != nil {
		cs := app.lru.Stats()
		st.Cache = &cs
	}
	if app.redisStore != nil {
		rs := app.redisStore.Stats()
		st.Redis = &rs
	}
	return st
}

// Server returns the cache protocol server.
func (app *App) Server() *server.Server { return app.server }

// Admin returns the admin HTTP server, or nil when it is disabled.
func (app *App) Admin() *httpserver.Server { return app.admin }

// Close releases external connections. Safe to call more than once.
func (app *App) Close() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Warn("failed to close redis client", logger.Component("app"), logger.Error(err))
		}
		app.redisClient = nil
	}
}

// WithConfig uses cfg instead of loading configuration from the environment.
func WithConfig(cfg Config) AppOption {
	return func(app *App) error {
		app.config = cfg
		app.configured = true
		return nil
	}
}

// WithLogger overrides the logger built from configuration.
func WithLogger(log *slog.Logger) AppOption {
	return func(app *App) error {
		if log == nil {
			return fmt.Errorf("%w: logger", ErrNilDependency)
		}
		app.logger = log
		return nil
	}
}

// WithStorage serves from storage instead of the configured backend.
func WithStorage(storage cache.Storage) AppOption {
	return func(app *App) error {
		if storage == nil {
			return fmt.Errorf("%w: storage", ErrNilDependency)
		}
		app.storage = storage
		if lru, ok := storage.(*cache.LRU); ok {
			app.lru = lru
		}
		return nil
	}
}

// WithReadinessChecks adds checks to the readiness probe.
func WithReadinessChecks(checks ...health.Check) AppOption {
	return func(app *App) error {
		app.checks = append(app.checks, checks...)
		return nil
	}
}
