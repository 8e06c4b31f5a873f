package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errTestFailure = errors.New("test failure")

func quietConfig() *Config {
	cfg := &Config{Logger: NewNoOpLogger()}
	return cfg.withDefaults()
}

// TestWorker_PopLocalDiscipline verifies the owner-end pop order
// Given: A worker with tasks 1, 2, 3 in its local deque
// When: popLocal runs under LIFO and under FIFO discipline
// Then: LIFO yields 3 first, FIFO yields 1 first
func TestWorker_PopLocalDiscipline(t *testing.T) {
	for _, tc := range []struct {
		discipline Discipline
		wantFirst  int
	}{
		{DisciplineLIFO, 3},
		{DisciplineFIFO, 1},
	} {
		// Arrange
		cfg := quietConfig()
		cfg.Discipline = tc.discipline
		var down atomic.Bool
		w := newWorker(0, NewDeque(8), NewGlobalQueue(0, 2), cfg, &down)
		for i := 1; i <= 3; i++ {
			w.SubmitLocal(NewTask(i, 0))
		}

		// Act
		task, ok := w.popLocal()

		// Assert
		if !ok {
			t.Fatalf("%v: popLocal() empty", tc.discipline)
		}
		if got := task.Payload.(int); got != tc.wantFirst {
			t.Errorf("%v: popLocal() payload = %d, want %d", tc.discipline, got, tc.wantFirst)
		}
	}
}

// TestWorker_FindWorkOrder verifies the seeking order
// Given: A worker with work in its local deque, the global queue, and a peer
// When: findWork runs repeatedly
// Then: Local work comes first, then global, then stolen peer work
func TestWorker_FindWorkOrder(t *testing.T) {
	// Arrange
	cfg := quietConfig()
	var down atomic.Bool
	global := NewGlobalQueue(0, 4)
	w := newWorker(0, NewDeque(8), global, cfg, &down)
	peer := newWorker(1, NewDeque(8), global, cfg, &down)
	w.stealers = []*Stealer{w.local.Stealer(), peer.local.Stealer()}
	peer.stealers = w.stealers

	w.SubmitLocal(NewTask("local", 0))
	global.Push(NewTask("global", 0))
	peer.SubmitLocal(NewTask("peer", 0))

	// Act & Assert
	expect := []struct {
		payload string
		stolen  bool
	}{
		{"local", false},
		{"global", false},
		{"peer", true},
	}
	for _, e := range expect {
		task, stolen, ok := w.findWork()
		if !ok {
			t.Fatalf("findWork() empty, want %q", e.payload)
		}
		if got := task.Payload.(string); got != e.payload {
			t.Errorf("findWork() payload = %q, want %q", got, e.payload)
		}
		if stolen != e.stolen {
			t.Errorf("findWork() stolen = %v for %q, want %v", stolen, e.payload, e.stolen)
		}
	}

	if _, _, ok := w.findWork(); ok {
		t.Error("findWork() found work in empty system")
	}
}

// TestWorker_FairnessFloor verifies that starved peers steal from a loaded one
// Given: Worker 0 seeded with 1000 local tasks, three idle peers
// When: The scheduler runs until all queues are empty
// Then: All 1000 tasks are processed and peers report stolen work
func TestWorker_FairnessFloor(t *testing.T) {
	// Arrange
	const seeded = 1000
	cfg := quietConfig()
	cfg.Handler = SleepHandler(5 * time.Microsecond)

	s, err := NewScheduler(4, cfg)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	for i := 0; i < seeded; i++ {
		s.workers[0].local.PushBottom(NewTask(i, 1))
	}

	// Act
	s.Start(context.Background())
	deadline := time.Now().Add(10 * time.Second)
	for s.LocalTaskCount() > 0 || s.QueuedTaskCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("queues did not drain in time")
		}
		time.Sleep(time.Millisecond)
	}
	s.Shutdown()
	stats := s.Join()

	// Assert
	if stats.TotalProcessed != seeded {
		t.Errorf("TotalProcessed = %d, want %d", stats.TotalProcessed, seeded)
	}
	if stats.TotalStolen == 0 {
		t.Error("TotalStolen = 0, want starved peers to steal from the loaded worker")
	}
	var peersProcessed uint64
	for _, ws := range stats.PerWorker[1:] {
		peersProcessed += ws.Processed
	}
	if peersProcessed == 0 {
		t.Error("idle peers processed nothing, want stolen work to reach them")
	}
}

// TestWorker_DrainsBacklogOnShutdown verifies the draining guarantee
// Given: Tasks already in a local deque and the global queue, shutdown signalled
// When: Workers start and run to Stopped
// Then: Every queued task is processed before Join returns
func TestWorker_DrainsBacklogOnShutdown(t *testing.T) {
	// Arrange
	cfg := quietConfig()
	var executed atomic.Int64
	cfg.Handler = func(ctx context.Context, task Task) error {
		executed.Add(1)
		return nil
	}

	s, err := NewScheduler(2, cfg)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		s.workers[i%2].local.PushBottom(NewTask(i, 0))
	}
	for i := 0; i < 50; i++ {
		s.Submit(NewTask(50+i, 0))
	}

	// Act - shutdown before the first worker even starts
	s.Shutdown()
	s.Start(context.Background())
	stats := s.Join()

	// Assert
	if got := executed.Load(); got != 100 {
		t.Errorf("executed = %d, want 100 (drain must finish local and global backlogs)", got)
	}
	if stats.TotalProcessed != 100 {
		t.Errorf("TotalProcessed = %d, want 100", stats.TotalProcessed)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

// TestWorker_PanicContainment verifies a panicking task never kills a worker
// Given: A single worker and a handler that panics on one payload
// When: A panicking task runs between healthy ones
// Then: All tasks count as processed, the panic is reported, the worker survives
func TestWorker_PanicContainment(t *testing.T) {
	// Arrange
	var panics atomic.Int64
	cfg := quietConfig()
	cfg.Handler = func(ctx context.Context, task Task) error {
		if task.Payload == "boom" {
			panic("exploded")
		}
		return nil
	}
	cfg.PanicHandler = panicCounter{&panics}

	s, err := NewScheduler(1, cfg)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	s.Start(context.Background())

	// Act
	s.Submit(NewTask("ok", 0))
	s.Submit(NewTask("boom", 0))
	s.Submit(NewTask("ok", 0))

	time.Sleep(100 * time.Millisecond)
	s.Shutdown()
	stats := s.Join()

	// Assert
	if stats.TotalProcessed != 3 {
		t.Errorf("TotalProcessed = %d, want 3", stats.TotalProcessed)
	}
	if got := panics.Load(); got != 1 {
		t.Errorf("panic handler calls = %d, want 1", got)
	}
	if stats.PerWorker[0].Panicked != 1 {
		t.Errorf("Panicked = %d, want 1", stats.PerWorker[0].Panicked)
	}
}

type panicCounter struct{ n *atomic.Int64 }

func (p panicCounter) HandlePanic(ctx context.Context, workerID int, panicInfo any, stackTrace []byte) {
	p.n.Add(1)
}

// TestWorker_FailureContainment verifies handler errors are reported, not fatal
// Given: A handler that fails on odd payloads
// When: 10 tasks run
// Then: All 10 process, 5 failures reach the failure handler
func TestWorker_FailureContainment(t *testing.T) {
	// Arrange
	var failures atomic.Int64
	cfg := quietConfig()
	cfg.Handler = func(ctx context.Context, task Task) error {
		if task.Payload.(int)%2 == 1 {
			return errTestFailure
		}
		return nil
	}
	cfg.FailureHandler = failureCounter{&failures}

	s, err := NewScheduler(1, cfg)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	s.Start(context.Background())

	// Act
	for i := 0; i < 10; i++ {
		s.Submit(NewTask(i, 0))
	}
	time.Sleep(100 * time.Millisecond)
	s.Shutdown()
	stats := s.Join()

	// Assert
	if stats.TotalProcessed != 10 {
		t.Errorf("TotalProcessed = %d, want 10", stats.TotalProcessed)
	}
	if stats.TotalFailed != 5 {
		t.Errorf("TotalFailed = %d, want 5", stats.TotalFailed)
	}
	if got := failures.Load(); got != 5 {
		t.Errorf("failure handler calls = %d, want 5", got)
	}
}

type failureCounter struct{ n *atomic.Int64 }

func (f failureCounter) HandleFailure(workerID int, t Task, err error) {
	f.n.Add(1)
}

// TestWorker_RecordsQueueDepthOnBackoff verifies the depth gauge feed
// Given: An idle worker cycling through backoff
// When: The scheduler runs briefly with no work
// Then: The metrics sink receives periodic queue depth observations
func TestWorker_RecordsQueueDepthOnBackoff(t *testing.T) {
	// Arrange
	var depthCalls atomic.Int64
	cfg := quietConfig()
	cfg.Metrics = &depthRecorder{n: &depthCalls}

	s, err := NewScheduler(1, cfg)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	// Act - no submissions, the worker just idles through backoff cycles
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Shutdown()
	s.Join()

	// Assert
	if got := depthCalls.Load(); got == 0 {
		t.Error("RecordQueueDepth never called, want periodic observations while idle")
	}
}

type depthRecorder struct {
	NilMetrics
	n *atomic.Int64
}

func (d *depthRecorder) RecordQueueDepth(depth int) {
	d.n.Add(1)
}
