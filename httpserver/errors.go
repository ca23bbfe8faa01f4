package httpserver

import "errors"

var (
	ErrMissingAddress       = errors.New("admin server address is required")
	ErrServerAlreadyRunning = errors.New("admin server is already running")
	ErrStart                = errors.New("failed to start HTTP server")
	ErrShutdown             = errors.New("failed to shutdown HTTP server gracefully")
)
