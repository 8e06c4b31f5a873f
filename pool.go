package stealpool

import (
	"context"
	"sync"
	"time"

	"github.com/stealpool/go-stealpool/core"
)

// Pool is the public face of the work-stealing scheduler. It assembles N
// workers around a shared global queue, accepts submissions, and
// orchestrates the shutdown/drain protocol.
type Pool struct {
	scheduler *core.Scheduler
	workers   int
}

// New creates a pool with workerCount workers and starts them immediately.
// A nil config uses defaults. Fails with core.ErrNoWorkers when workerCount
// is not positive.
func New(workerCount int, cfg *core.Config) (*Pool, error) {
	return NewWithContext(context.Background(), workerCount, cfg)
}

// NewWithContext is New with a caller-supplied base context for task
// execution. The context is handed to handlers; cancelling it does not
// replace the cooperative Shutdown/Join protocol.
func NewWithContext(ctx context.Context, workerCount int, cfg *core.Config) (*Pool, error) {
	scheduler, err := core.NewScheduler(workerCount, cfg)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		scheduler: scheduler,
		workers:   workerCount,
	}
	scheduler.Start(ctx)
	return p, nil
}

// Submit enqueues a task on the global queue. May be called concurrently
// from any number of producers, before or after Shutdown. Never blocks;
// returns core.ErrQueueFull when a configured bound is reached.
func (p *Pool) Submit(t Task) error {
	return p.scheduler.Submit(t)
}

// SubmitDelayed schedules a task to enter the global queue after delay.
// Tasks still pending at Shutdown are discarded and reported rejected.
func (p *Pool) SubmitDelayed(t Task, delay time.Duration) {
	p.scheduler.SubmitDelayed(t, delay)
}

// SubmitLocal pushes a task onto the submitting worker's own local queue.
// Only valid from inside a task handler, whose context identifies the
// worker; from anywhere else it falls back to a global Submit and reports
// false.
func (p *Pool) SubmitLocal(ctx context.Context, t Task) bool {
	if w := core.CurrentWorker(ctx); w != nil {
		w.SubmitLocal(t)
		return true
	}
	_ = p.Submit(t)
	return false
}

// SubmitAndWait submits a task and blocks until it has executed, returning
// the handler's error (nil on success, a rejection error if the task was
// dropped). The wait is cut short when ctx is cancelled; the task itself
// still runs.
func (p *Pool) SubmitAndWait(ctx context.Context, t Task) error {
	done := make(chan error, 1)
	if err := p.scheduler.Submit(t.WithDone(done)); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown flips the shutdown flag once and returns immediately.
// Idempotent. Workers finish their in-flight task, drain their own backlog
// and the global queue, then stop.
func (p *Pool) Shutdown() {
	p.scheduler.Shutdown()
}

// Join blocks until every worker has stopped and returns the aggregate
// counters. Call Shutdown first; Join never forces termination.
func (p *Pool) Join() Stats {
	return p.scheduler.Join()
}

// Stop is Shutdown followed by Join.
func (p *Pool) Stop() Stats {
	p.Shutdown()
	return p.Join()
}

// IsRunning reports whether the pool's workers are started and not yet
// joined.
func (p *Pool) IsRunning() bool {
	return p.scheduler.IsRunning()
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// QueuedTaskCount returns the current global queue depth.
func (p *Pool) QueuedTaskCount() int {
	return p.scheduler.QueuedTaskCount()
}

// LocalTaskCount returns the approximate backlog across all local queues.
func (p *Pool) LocalTaskCount() int {
	return p.scheduler.LocalTaskCount()
}

// DelayedTaskCount returns the number of tasks held by the delay manager.
func (p *Pool) DelayedTaskCount() int {
	return p.scheduler.DelayedTaskCount()
}

// Stats returns a point-in-time observability snapshot.
func (p *Pool) Stats() core.PoolStats {
	return p.scheduler.Stats()
}

// =============================================================================
// Global Pool Helper (Singleton)
// =============================================================================

var (
	globalPool *Pool
	globalMu   sync.Mutex
)

// InitGlobalPool initializes the process-wide pool with the given number of
// workers and default config. It starts the pool immediately.
func InitGlobalPool(workers int) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		return nil // Already initialized
	}

	p, err := New(workers, nil)
	if err != nil {
		return err
	}
	globalPool = p
	return nil
}

// GetGlobalPool returns the global pool instance.
// It panics if InitGlobalPool has not been called.
func GetGlobalPool() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		panic("global pool not initialized. Call InitGlobalPool() first.")
	}
	return globalPool
}

// ShutdownGlobalPool stops the global pool and returns its final stats.
func ShutdownGlobalPool() Stats {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		return Stats{}
	}
	stats := globalPool.Stop()
	globalPool = nil
	return stats
}
