// Package executor runs short tasks on an elastic pool of goroutines.
//
// The pool keeps a low watermark of workers alive at all times and grows up to a high
// watermark when submitted tasks outnumber idle workers. Workers above the low
// watermark retire after sitting idle for the configured timeout.
//
// # Usage
//
//	exec, err := executor.New(
//		executor.WithLowWatermark(2),
//		executor.WithHighWatermark(16),
//		executor.WithIdleTimeout(30*time.Second),
//		executor.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//
//	if !exec.Submit(func() { handle(conn) }) {
//		// executor is stopping or the queue is full
//	}
//
//	exec.Stop(true) // drain queued tasks, wait for workers to exit
//
// # Lifecycle
//
// An executor moves from StateRunning to StateStopping on Stop and reaches StateStopped
// once the last worker exits. Tasks queued before Stop still run; Submit returns false
// from the moment Stop is called. Shutdown is the context-bounded variant for service
// shutdown paths.
//
// A task that panics is recovered and logged with its stack; the worker keeps serving.
package executor
