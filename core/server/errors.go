package server

import "errors"

var (
	ErrMissingAddress       = errors.New("server address is required")
	ErrMissingStorage       = errors.New("storage is required")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerClosed         = errors.New("server closed")
	ErrUnsupportedPlatform  = errors.New("event loop requires linux")
	ErrUnsupportedConn      = errors.New("connection does not expose a file descriptor")
	ErrEventLoop            = errors.New("event loop failed")
	ErrLoopPanic            = errors.New("event loop panicked")
)
