package kvcache

import "errors"

var (
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrInvalidCapacity = errors.New("cache capacity must be positive")
	ErrNilDependency   = errors.New("dependency cannot be nil")
)
