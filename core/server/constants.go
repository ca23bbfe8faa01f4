package server

import "time"

const (
	// DefaultWorkers is the default number of event loops.
	DefaultWorkers = 4

	// DefaultMaxOutput is the default per-connection output high-water mark.
	DefaultMaxOutput = 1 << 20 // 1 MB

	// DefaultIdleTimeout is the default timeout for connections that make no progress.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultShutdownTimeout is the default timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// maxEvents bounds the readiness events returned by one wait.
	maxEvents = 128

	// sweepInterval caps how long an event loop waits before checking idle connections.
	sweepInterval = time.Second
)
