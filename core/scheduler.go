package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoWorkers is returned by NewScheduler when the worker count is not
// positive. Fatal at construction: the scheduler is never created.
var ErrNoWorkers = errors.New("stealpool: worker count must be positive")

const (
	// Rejection reasons reported to RejectedTaskHandler and Metrics.
	RejectQueueFull = "queue_full"
	RejectShutdown  = "shutdown"
	RejectUndrained = "undrained"
)

// Scheduler wires N workers to one global queue and each other's steal
// handles, and coordinates the shutdown/drain protocol.
//
// Lifecycle: NewScheduler -> Start -> (Submit...) -> Shutdown -> Join.
// Shutdown flips a one-way flag and returns immediately; workers observe it
// at loop boundaries, drain their own backlog plus the global queue, and
// exit. Join blocks until every worker has stopped, then aggregates the
// per-worker counters.
type Scheduler struct {
	cfg     *Config
	global  *GlobalQueue
	workers []*Worker
	delay   *DelayManager

	shutdown atomic.Bool // one-way Running -> Stopping
	wg       sync.WaitGroup

	running   bool
	runningMu sync.RWMutex

	// Final per-worker stats, written by Join after wg.Wait. joined flips
	// before the final drain so Submit can tell stragglers apart.
	joinOnce sync.Once
	joined   atomic.Bool
	final    Stats
}

// NewScheduler builds the global queue, one local deque plus steal handle
// per worker, and the worker set. Workers are not started until Start.
func NewScheduler(workerCount int, cfg *Config) (*Scheduler, error) {
	if workerCount <= 0 {
		return nil, ErrNoWorkers
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.withDefaults()
	}

	s := &Scheduler{
		cfg:    cfg,
		global: NewGlobalQueue(cfg.GlobalBound, workerCount*2),
	}
	s.delay = NewDelayManager(
		func(t Task) {
			if err := s.global.Push(t); err != nil {
				s.reject(t, RejectQueueFull)
			}
		},
		func(t Task) {
			s.reject(t, RejectShutdown)
		},
	)

	s.workers = make([]*Worker, workerCount)
	for i := 0; i < workerCount; i++ {
		s.workers[i] = newWorker(i, NewDeque(defaultDequeCap), s.global, cfg, &s.shutdown)
	}

	// Every worker holds the full set of steal handles; it skips its own
	// slot while seeking.
	stealers := make([]*Stealer, workerCount)
	for i, w := range s.workers {
		stealers[i] = w.local.Stealer()
	}
	for _, w := range s.workers {
		w.stealers = stealers
	}

	return s, nil
}

// Start launches the worker goroutines. Idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.running {
		return // Already running
	}
	s.running = true

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *Worker) {
			defer s.wg.Done()
			w.run(ctx)
		}(w)
	}

	s.cfg.Logger.Info("scheduler started", F("workers", len(s.workers)))
}

// Submit enqueues a task on the global queue. Never blocks; fails with
// ErrQueueFull when a bound is configured and reached. Submissions are
// accepted before and after Shutdown: a task that arrives while workers are
// still draining is executed, one that arrives later is counted as dropped
// by Join, and one that arrives after Join has finished draining is
// reported rejected immediately.
func (s *Scheduler) Submit(t Task) error {
	if s.joined.Load() {
		s.reject(t, RejectUndrained)
		return nil
	}
	if err := s.global.Push(t); err != nil {
		s.reject(t, RejectQueueFull)
		return err
	}
	if s.joined.Load() {
		// Join finished its drain between the check and the push; sweep
		// the queue so the straggler is reported instead of retained.
		for _, lt := range s.global.Drain() {
			s.reject(lt, RejectUndrained)
		}
	}
	return nil
}

// SubmitDelayed schedules a task to reach the global queue after delay.
// Tasks still pending when Shutdown is called, and tasks submitted here
// after Shutdown, are discarded and reported through the
// RejectedTaskHandler.
func (s *Scheduler) SubmitDelayed(t Task, delay time.Duration) {
	s.delay.AddDelayedTask(t, delay)
}

// Shutdown flips the shutdown flag. Idempotent; returns immediately without
// waiting for workers.
func (s *Scheduler) Shutdown() {
	if s.shutdown.CompareAndSwap(false, true) {
		s.cfg.Logger.Info("scheduler stopping")
		s.delay.Stop()
	}
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *Scheduler) IsShuttingDown() bool {
	return s.shutdown.Load()
}

// Join blocks until every worker has stopped, then returns the aggregate
// counters. Tasks left in the global queue once all workers exited (only
// possible for submissions racing with the end of draining) are drained,
// counted as Dropped, and reported as rejected. Safe to call more than
// once; later calls return the same stats.
func (s *Scheduler) Join() Stats {
	s.wg.Wait()

	s.joinOnce.Do(func() {
		stats := Stats{PerWorker: make([]WorkerStats, len(s.workers))}
		for i, w := range s.workers {
			ws := w.stats()
			stats.PerWorker[i] = ws
			stats.TotalProcessed += ws.Processed
			stats.TotalStolen += ws.Stolen
			stats.TotalFailed += ws.Failed
		}

		s.joined.Store(true)
		for _, t := range s.global.Drain() {
			stats.Dropped++
			s.reject(t, RejectUndrained)
		}

		s.runningMu.Lock()
		s.running = false
		s.final = stats
		s.runningMu.Unlock()

		s.cfg.Logger.Info("scheduler stopped",
			F("processed", stats.TotalProcessed),
			F("stolen", stats.TotalStolen),
			F("dropped", stats.Dropped))
	})

	return s.final
}

// IsRunning reports whether workers have been started and not yet joined.
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()
	return s.running
}

// WorkerCount returns the number of workers.
func (s *Scheduler) WorkerCount() int {
	return len(s.workers)
}

// QueuedTaskCount returns the current global queue depth.
func (s *Scheduler) QueuedTaskCount() int {
	return s.global.Len()
}

// LocalTaskCount returns the approximate backlog across all local queues.
func (s *Scheduler) LocalTaskCount() int {
	total := 0
	for _, w := range s.workers {
		total += w.local.Len()
	}
	return total
}

// DelayedTaskCount returns the number of tasks held by the delay manager.
func (s *Scheduler) DelayedTaskCount() int {
	return s.delay.TaskCount()
}

// Stats returns a point-in-time snapshot for observability consumers. The
// processed/stolen totals become exact only after Join; while workers run
// they read as zero since per-worker counters stay private until stop.
func (s *Scheduler) Stats() PoolStats {
	s.runningMu.RLock()
	running := s.running
	final := s.final
	s.runningMu.RUnlock()

	return PoolStats{
		Workers:   len(s.workers),
		Queued:    s.QueuedTaskCount(),
		Local:     s.LocalTaskCount(),
		Delayed:   s.DelayedTaskCount(),
		Processed: final.TotalProcessed,
		Stolen:    final.TotalStolen,
		Running:   running,
	}
}

func (s *Scheduler) reject(t Task, reason string) {
	s.cfg.Metrics.RecordTaskRejected(reason)
	s.cfg.RejectedTaskHandler.HandleRejectedTask(t, reason)
	t.notifyDone(errors.New("stealpool: task rejected: " + reason))
}
