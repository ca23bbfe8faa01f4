package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilConfig   = errors.New("config target cannot be nil")
	ErrParseConfig = errors.New("failed to parse config from environment")
)

var (
	dotenvOnce sync.Once

	mu     sync.Mutex
	loaded = make(map[reflect.Type]any)
)

// Load fills cfg from environment variables. The first call for a type parses the
// environment; later calls for the same type return the cached value.
// A .env file in the working directory is loaded once, if present.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	dotenvOnce.Do(func() {
		// a missing .env file is fine; real environment wins over it
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if v, ok := loaded[key]; ok {
		*cfg = v.(T)
		return nil
	}

	var v T
	if err := env.Parse(&v); err != nil {
		return fmt.Errorf("%w: %T: %w", ErrParseConfig, v, err)
	}
	loaded[key] = v
	*cfg = v
	return nil
}

// MustLoad is like Load but panics on error. Intended for program startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
