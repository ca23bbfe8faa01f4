// Command kvcached serves an in-memory LRU cache over the memcached text protocol.
//
// Configuration is read from the environment (and a .env file, if present):
//
//	SERVER_ADDR=:11211 ADMIN_ADDR=:8080 CACHE_CAPACITY=67108864 kvcached
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/kvcache/app/kvcache"
	"github.com/dmitrymomot/kvcache/core/logger"
)

func main() {
	if err := run(); err != nil {
		logger.New().Error("kvcached exited with error", logger.Component("main"), logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := kvcache.New(ctx)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
