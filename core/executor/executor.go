package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kvcache/core/logger"
)

// State is the executor lifecycle state.
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON stats.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*s = StateRunning
	case "stopping":
		*s = StateStopping
	case "stopped":
		*s = StateStopped
	default:
		return fmt.Errorf("%w: %q", ErrUnknownState, text)
	}
	return nil
}

// Stats provides observability metrics for monitoring and debugging.
type Stats struct {
	State    State `json:"state"`
	Workers  int   `json:"workers"`  // live workers
	Idle     int   `json:"idle"`     // workers waiting for a task
	Queued   int   `json:"queued"`   // tasks waiting for a worker
	Executed int64 `json:"executed"` // tasks run to completion
	Rejected int64 `json:"rejected"` // submissions refused
	Panics   int64 `json:"panics"`   // tasks that panicked
}

// Executor runs submitted tasks on a pool of workers that grows between a low and a
// high watermark. Safe for concurrent use.
type Executor struct {
	name         string
	low          int
	high         int
	idleTimeout  time.Duration
	maxQueueSize int
	logger       *slog.Logger

	mu            sync.Mutex
	workAvailable *sync.Cond
	allStopped    *sync.Cond
	tasks         []func()
	workers       map[uuid.UUID]struct{}
	idle          int
	state         State

	executed atomic.Int64
	rejected atomic.Int64
	panics   atomic.Int64
}

// New creates an executor and pre-spawns the low watermark of workers.
func New(opts ...Option) (*Executor, error) {
	o := &options{
		name:          "executor",
		lowWatermark:  DefaultLowWatermark,
		highWatermark: DefaultHighWatermark,
		idleTimeout:   DefaultIdleTimeout,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.lowWatermark < 0 || o.highWatermark < 1 || o.highWatermark < o.lowWatermark {
		return nil, fmt.Errorf("%w: low=%d high=%d", ErrInvalidWatermarks, o.lowWatermark, o.highWatermark)
	}
	if o.idleTimeout <= 0 {
		return nil, ErrInvalidIdleTimeout
	}
	if o.maxQueueSize < 0 {
		return nil, ErrInvalidQueueSize
	}

	e := &Executor{
		name:         o.name,
		low:          o.lowWatermark,
		high:         o.highWatermark,
		idleTimeout:  o.idleTimeout,
		maxQueueSize: o.maxQueueSize,
		logger:       o.logger,
		workers:      make(map[uuid.UUID]struct{}, o.highWatermark),
	}
	e.workAvailable = sync.NewCond(&e.mu)
	e.allStopped = sync.NewCond(&e.mu)

	e.mu.Lock()
	for range e.low {
		e.spawnLocked()
	}
	e.mu.Unlock()

	e.logger.Info("executor started",
		logger.Component("executor"),
		slog.String("executor", e.name),
		slog.Int("low_watermark", e.low),
		slog.Int("high_watermark", e.high),
		logger.Timeout(e.idleTimeout))

	return e, nil
}

// Submit enqueues task. It returns false when the executor is not running or the
// queue is full. A new worker is spawned when queued tasks outnumber idle workers
// and the high watermark has not been reached.
func (e *Executor) Submit(task func()) bool {
	if task == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning || (e.maxQueueSize > 0 && len(e.tasks) >= e.maxQueueSize) {
		e.rejected.Add(1)
		return false
	}

	e.tasks = append(e.tasks, task)
	if len(e.tasks) > e.idle && len(e.workers) < e.high {
		e.spawnLocked()
	}
	e.workAvailable.Signal()
	return true
}

// Stop moves the executor to the stopping state. Workers finish the queued tasks and
// exit; the last one to leave marks the executor stopped. With await set, Stop blocks
// until that happens. Calling Stop(true) from inside a task deadlocks.
func (e *Executor) Stop(await bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		e.state = StateStopping
		e.logger.Info("executor stopping",
			logger.Component("executor"),
			slog.String("executor", e.name),
			slog.Int("workers", len(e.workers)),
			slog.Int("queued", len(e.tasks)))

		if len(e.workers) == 0 {
			e.markStoppedLocked()
		}
		e.workAvailable.Broadcast()
	}

	if await {
		for e.state != StateStopped {
			e.allStopped.Wait()
		}
	}
}

// Shutdown stops the executor and waits for all workers to exit or for ctx to be done.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.Stop(false)

	done := make(chan struct{})
	go func() {
		e.Stop(true)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.logger.WarnContext(ctx, "executor shutdown timeout exceeded, tasks still running",
			logger.Component("executor"),
			slog.String("executor", e.name))
		return fmt.Errorf("executor %s shutdown: %w", e.name, ctx.Err())
	}
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns current executor statistics.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	st := Stats{
		State:   e.state,
		Workers: len(e.workers),
		Idle:    e.idle,
		Queued:  len(e.tasks),
	}
	e.mu.Unlock()

	st.Executed = e.executed.Load()
	st.Rejected = e.rejected.Load()
	st.Panics = e.panics.Load()
	return st
}

// Name returns the executor label.
func (e *Executor) Name() string {
	return e.name
}

func (e *Executor) spawnLocked() {
	id := uuid.New()
	e.workers[id] = struct{}{}
	go e.work(id)
}

// work is the worker loop. Tasks run without e.mu held.
func (e *Executor) work(id uuid.UUID) {
	e.logger.Debug("worker started",
		logger.Component("executor"),
		slog.String("executor", e.name),
		logger.WorkerID(id.String()))

	e.mu.Lock()
	for {
		task, ok := e.next(id)
		if !ok {
			break
		}
		e.mu.Unlock()
		e.run(id, task)
		e.mu.Lock()
	}
	e.mu.Unlock()
}

// next waits for a task. It returns false once the worker has deregistered itself,
// either because it idled past the timeout above the low watermark or because the
// executor is stopping and the queue is drained. Called and returns with e.mu held.
func (e *Executor) next(id uuid.UUID) (func(), bool) {
	deadline := time.Now().Add(e.idleTimeout)
	for len(e.tasks) == 0 {
		if e.state != StateRunning {
			e.retireLocked(id, "stopped")
			return nil, false
		}
		if !time.Now().Before(deadline) {
			if len(e.workers) > e.low {
				e.retireLocked(id, "idle")
				return nil, false
			}
			deadline = time.Now().Add(e.idleTimeout)
		}

		e.idle++
		e.waitUntil(deadline)
		e.idle--
	}

	task := e.tasks[0]
	e.tasks[0] = nil
	e.tasks = e.tasks[1:]
	return task, true
}

// waitUntil waits on workAvailable until woken or the deadline passes.
// sync.Cond has no timed wait, so a timer broadcasts on expiry.
func (e *Executor) waitUntil(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		e.mu.Lock()
		e.workAvailable.Broadcast()
		e.mu.Unlock()
	})
	e.workAvailable.Wait()
	timer.Stop()
}

func (e *Executor) retireLocked(id uuid.UUID, reason string) {
	delete(e.workers, id)

	e.logger.Debug("worker exited",
		logger.Component("executor"),
		slog.String("executor", e.name),
		logger.WorkerID(id.String()),
		slog.String("reason", reason),
		slog.Int("workers", len(e.workers)))

	if e.state == StateStopping && len(e.workers) == 0 {
		e.markStoppedLocked()
	}
}

func (e *Executor) markStoppedLocked() {
	e.state = StateStopped
	e.allStopped.Broadcast()
	e.logger.Info("executor stopped",
		logger.Component("executor"),
		slog.String("executor", e.name),
		slog.Int64("executed", e.executed.Load()))
}

func (e *Executor) run(id uuid.UUID, task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.logger.Error("task panicked",
				logger.Component("executor"),
				slog.String("executor", e.name),
				logger.WorkerID(id.String()),
				logger.Panic(r),
				logger.Stack())
		}
	}()

	task()
	e.executed.Add(1)
}
