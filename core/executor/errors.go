package executor

import "errors"

var (
	ErrInvalidWatermarks  = errors.New("executor: low watermark must be >= 0 and high watermark >= max(low, 1)")
	ErrInvalidIdleTimeout = errors.New("executor: idle timeout must be positive")
	ErrInvalidQueueSize   = errors.New("executor: max queue size must be >= 0")
	ErrUnknownState       = errors.New("executor: unknown state")
)
