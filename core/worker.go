package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Worker owns one local deque, holds a steal handle for every peer, and
// runs the scheduling loop. Per iteration it seeks work from its own queue
// first, then the global queue, then its peers; misses end in a bounded
// backoff, or in draining once shutdown has been signalled.
//
// The counters are owned exclusively by the worker goroutine and are
// published only once, when the worker stops.
type Worker struct {
	id       int
	local    *Deque
	self     *Stealer // owner-end pop for the FIFO discipline
	stealers []*Stealer
	global   *GlobalQueue
	cfg      *Config
	shutdown *atomic.Bool

	processed uint64
	stolen    uint64
	failed    uint64
	panicked  uint64
}

func newWorker(id int, local *Deque, global *GlobalQueue, cfg *Config, shutdown *atomic.Bool) *Worker {
	return &Worker{
		id:       id,
		local:    local,
		self:     local.Stealer(),
		global:   global,
		cfg:      cfg,
		shutdown: shutdown,
	}
}

// SubmitLocal pushes a task onto this worker's own deque. Only safe from a
// task executing on this worker; use CurrentWorker to obtain the handle.
func (w *Worker) SubmitLocal(t Task) {
	w.local.PushBottom(t)
}

// popLocal removes a task from the owner end per the configured discipline.
func (w *Worker) popLocal() (Task, bool) {
	if w.cfg.Discipline == DisciplineFIFO {
		return w.self.TrySteal()
	}
	return w.local.PopBottom()
}

// findWork tries, in order: own deque, global queue, then each peer's steal
// handle rotating from the next worker over. Reports whether the task was
// stolen from a peer.
func (w *Worker) findWork() (t Task, stolen bool, ok bool) {
	if t, ok := w.popLocal(); ok {
		return t, false, true
	}
	if t, ok := w.global.TryPop(); ok {
		return t, false, true
	}

	n := len(w.stealers)
	for i := 1; i < n; i++ {
		victim := (w.id + i) % n
		if t, ok := w.stealers[victim].TrySteal(); ok {
			return t, true, true
		}
	}
	return Task{}, false, false
}

// run is the worker goroutine body.
func (w *Worker) run(ctx context.Context) {
	w.cfg.Logger.Debug("worker started", F("worker", w.id))

	backoff := time.NewTimer(w.cfg.Backoff)
	if !backoff.Stop() {
		<-backoff.C
	}

	for {
		if t, stolen, ok := w.findWork(); ok {
			w.execute(ctx, t, stolen)
			continue
		}

		// Shutdown is observed only at loop boundaries; an in-progress
		// task or backoff is never interrupted.
		if w.shutdown.Load() {
			break
		}

		// Bounded backoff. A new submission wakes the worker early via
		// the global queue's signal channel. Entering backoff is the
		// periodic observation point for the queue depth gauge.
		w.cfg.Metrics.RecordQueueDepth(w.global.Len())
		backoff.Reset(w.cfg.Backoff)
		select {
		case <-w.global.Signal():
			if !backoff.Stop() {
				<-backoff.C
			}
		case <-backoff.C:
		}
	}

	w.drain(ctx)

	w.cfg.Logger.Debug("worker stopped",
		F("worker", w.id),
		F("processed", w.processed),
		F("stolen", w.stolen))
}

// drain finishes the worker's own backlog and helps empty the global queue,
// then stops. Peer stealing deliberately ends here: a draining worker is not
// required to liberate peers' backlogs, each peer drains its own.
func (w *Worker) drain(ctx context.Context) {
	for {
		if t, ok := w.popLocal(); ok {
			w.execute(ctx, t, false)
			continue
		}
		if t, ok := w.global.TryPop(); ok {
			w.execute(ctx, t, false)
			continue
		}
		return
	}
}

// execute runs one task to completion and updates the worker's counters.
func (w *Worker) execute(ctx context.Context, t Task, stolen bool) {
	if stolen {
		w.stolen++
		w.cfg.Metrics.RecordSteal(w.id)
	}

	start := time.Now()
	err := w.invoke(ctx, t)
	w.processed++
	w.cfg.Metrics.RecordTaskDuration(w.id, time.Since(start))

	if err != nil {
		w.failed++
		w.cfg.Metrics.RecordTaskFailure(w.id)
		w.cfg.FailureHandler.HandleFailure(w.id, t, err)
	}
}

// invoke calls the handler with panic containment. One failing or panicking
// task must never take down the worker.
func (w *Worker) invoke(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.panicked++
			err = fmt.Errorf("task panicked: %v", r)
			w.cfg.Metrics.RecordTaskPanic(w.id, r)
			w.cfg.PanicHandler.HandlePanic(ctx, w.id, r, debug.Stack())
		}
		t.notifyDone(err)
	}()

	return w.cfg.Handler(WithWorker(ctx, w), t)
}

// stats snapshots the final counters. Only meaningful after the worker
// goroutine has exited; the scheduler's WaitGroup provides the ordering.
func (w *Worker) stats() WorkerStats {
	return WorkerStats{
		ID:        w.id,
		Processed: w.processed,
		Stolen:    w.stolen,
		Failed:    w.failed,
		Panicked:  w.panicked,
	}
}
