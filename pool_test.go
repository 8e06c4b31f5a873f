package stealpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stealpool/go-stealpool/core"
)

func testConfig() *core.Config {
	return &core.Config{
		Logger:  core.NewNoOpLogger(),
		Handler: core.SleepHandler(time.Microsecond),
	}
}

func TestPool_Lifecycle(t *testing.T) {
	pool, err := New(2, testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !pool.IsRunning() {
		t.Error("pool should be running after New()")
	}
	if pool.WorkerCount() != 2 {
		t.Errorf("expected 2 workers, got %d", pool.WorkerCount())
	}

	pool.Stop()

	if pool.IsRunning() {
		t.Error("pool should not be running after Stop()")
	}
}

func TestPool_InvalidWorkerCount(t *testing.T) {
	pool, err := New(0, nil)
	if !errors.Is(err, ErrNoWorkers) {
		t.Errorf("New(0) error = %v, want ErrNoWorkers", err)
	}
	if pool != nil {
		t.Error("New(0) returned a pool, want nil")
	}
}

// TestPool_ReferenceScenario verifies the canonical end-to-end run
// Given: A 4-worker pool with default-style config
// When: 100 tasks with costs i%10+1 are submitted, then Shutdown and Join
// Then: TotalProcessed is 100 and TotalStolen is non-negative by type
func TestPool_ReferenceScenario(t *testing.T) {
	cfg := testConfig()
	cfg.Handler = nil // use the default sleep handler
	cfg.CostUnit = 10 * time.Microsecond
	pool, err := New(4, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 100; i++ {
		if err := pool.Submit(NewTask(i, uint64(i%10+1))); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	pool.Shutdown()
	stats := pool.Join()

	if stats.TotalProcessed != 100 {
		t.Errorf("TotalProcessed = %d, want 100", stats.TotalProcessed)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

// TestPool_SubmitLocalFairness verifies stealing liberates a loaded worker
// Given: One generator task that pushes 1000 tasks onto its own local queue
// When: Three idle peers run alongside it
// Then: All tasks complete and at least one peer reports stolen work
func TestPool_SubmitLocalFairness(t *testing.T) {
	// Arrange
	const generated = 1000
	var executed atomic.Int64

	var pool *Pool
	cfg := testConfig()
	cfg.Handler = func(ctx context.Context, task Task) error {
		if task.Payload == "generator" {
			for i := 0; i < generated; i++ {
				if !pool.SubmitLocal(ctx, NewTask(i, 1)) {
					t.Error("SubmitLocal() fell back to global inside a worker")
				}
			}
			return nil
		}
		executed.Add(1)
		time.Sleep(5 * time.Microsecond)
		return nil
	}

	var err error
	pool, err = New(4, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Act
	pool.Submit(NewTask("generator", 0))

	deadline := time.Now().Add(10 * time.Second)
	for executed.Load() < generated {
		if time.Now().After(deadline) {
			t.Fatalf("executed = %d, want %d before deadline", executed.Load(), generated)
		}
		time.Sleep(time.Millisecond)
	}
	stats := pool.Stop()

	// Assert
	if stats.TotalProcessed != generated+1 {
		t.Errorf("TotalProcessed = %d, want %d", stats.TotalProcessed, generated+1)
	}
	if stats.TotalStolen == 0 {
		t.Error("TotalStolen = 0, want peers to steal from the loaded worker")
	}
}

// TestPool_SubmitLocalOutsideWorker verifies the fallback path
func TestPool_SubmitLocalOutsideWorker(t *testing.T) {
	pool, err := New(2, testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pool.Stop()

	if pool.SubmitLocal(context.Background(), NewTask("x", 0)) {
		t.Error("SubmitLocal() = true outside a worker, want false (global fallback)")
	}
}

// TestPool_SubmitAndWait verifies completion notification
// Given: A handler that records payloads and fails on demand
// When: SubmitAndWait runs for a passing and a failing task
// Then: It returns nil and the handler's error respectively
func TestPool_SubmitAndWait(t *testing.T) {
	// Arrange
	wantErr := errors.New("handler failed")
	cfg := testConfig()
	cfg.Handler = func(ctx context.Context, task Task) error {
		if task.Payload == "fail" {
			return wantErr
		}
		return nil
	}
	pool, err := New(2, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pool.Stop()

	// Act & Assert
	if err := pool.SubmitAndWait(context.Background(), NewTask("ok", 0)); err != nil {
		t.Errorf("SubmitAndWait(ok) error = %v, want nil", err)
	}
	if err := pool.SubmitAndWait(context.Background(), NewTask("fail", 0)); !errors.Is(err, wantErr) {
		t.Errorf("SubmitAndWait(fail) error = %v, want %v", err, wantErr)
	}
}

// TestPool_SubmitAndWaitContextCancel verifies the wait is abortable
func TestPool_SubmitAndWaitContextCancel(t *testing.T) {
	cfg := testConfig()
	started := make(chan struct{})
	release := make(chan struct{})
	cfg.Handler = func(ctx context.Context, task Task) error {
		close(started)
		<-release
		return nil
	}
	pool, err := New(1, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		close(release)
		pool.Stop()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if err := pool.SubmitAndWait(ctx, NewTask("slow", 0)); !errors.Is(err, context.Canceled) {
		t.Errorf("SubmitAndWait() error = %v, want context.Canceled", err)
	}
}

// TestPool_DelayedSubmission verifies SubmitDelayed through the facade
func TestPool_DelayedSubmission(t *testing.T) {
	var executed atomic.Int64
	cfg := testConfig()
	cfg.Handler = func(ctx context.Context, task Task) error {
		executed.Add(1)
		return nil
	}
	pool, err := New(2, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pool.Stop()

	pool.SubmitDelayed(NewTask("later", 0), 20*time.Millisecond)

	if got := pool.DelayedTaskCount(); got != 1 {
		t.Errorf("DelayedTaskCount() = %d, want 1", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := executed.Load(); got != 1 {
		t.Errorf("executed = %d, want 1", got)
	}
}

// TestPool_BoundedSubmit verifies ErrQueueFull surfaces through the facade
func TestPool_BoundedSubmit(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalBound = 2
	blocked := make(chan struct{})
	cfg.Handler = func(ctx context.Context, task Task) error {
		<-blocked
		return nil
	}
	pool, err := New(1, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		close(blocked)
		pool.Stop()
	}()

	// One task occupies the worker; the queue then fills to its bound.
	pool.Submit(NewTask(0, 0))
	time.Sleep(20 * time.Millisecond)

	var full error
	for i := 0; i < 5; i++ {
		if err := pool.Submit(NewTask(i, 0)); err != nil {
			full = err
		}
	}
	if !errors.Is(full, ErrQueueFull) {
		t.Errorf("Submit() over bound error = %v, want ErrQueueFull", full)
	}
}

func TestGlobalPool(t *testing.T) {
	if err := InitGlobalPool(2); err != nil {
		t.Fatalf("InitGlobalPool() error = %v", err)
	}
	if err := InitGlobalPool(4); err != nil {
		t.Errorf("second InitGlobalPool() error = %v, want nil no-op", err)
	}

	pool := GetGlobalPool()
	if pool.WorkerCount() != 2 {
		t.Errorf("WorkerCount() = %d, want 2 (second init must not replace)", pool.WorkerCount())
	}

	for i := 0; i < 10; i++ {
		pool.Submit(NewTask(i, 1))
	}

	stats := ShutdownGlobalPool()
	if stats.TotalProcessed+stats.Dropped != 10 {
		t.Errorf("processed + dropped = %d, want 10", stats.TotalProcessed+stats.Dropped)
	}

	defer func() {
		if recover() == nil {
			t.Error("GetGlobalPool() after shutdown should panic")
		}
	}()
	GetGlobalPool()
}
