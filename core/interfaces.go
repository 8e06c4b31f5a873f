package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution. The panic is
// recovered at the worker-loop boundary; the worker keeps running. This
// allows custom panic handling, logging, and recovery strategies.
//
// Implementations must be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context from the panicked task
	// - workerID: The ID of the worker the task ran on
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d] Panic: %v\nStack trace:\n%s", workerID, panicInfo, stackTrace)
}

// =============================================================================
// FailureHandler: Interface for handling handler-returned task errors
// =============================================================================

// FailureHandler is called when a task's handler returns a non-nil error.
// A failing task never takes down its worker; the error is reported here and
// the worker continues seeking.
//
// Implementations must be thread-safe.
type FailureHandler interface {
	// HandleFailure is called with the worker ID, the failed task, and the
	// error its handler returned.
	HandleFailure(workerID int, t Task, err error)
}

// DefaultFailureHandler logs failed tasks to stdout.
type DefaultFailureHandler struct{}

// HandleFailure prints the failure to stdout.
func (h *DefaultFailureHandler) HandleFailure(workerID int, t Task, err error) {
	fmt.Printf("[Worker %d] Task failed (cost=%d): %v\n", workerID, t.Cost, err)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting the worker hot path.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(workerID int, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(workerID int, panicInfo any)

	// RecordTaskFailure records that a task's handler returned an error.
	RecordTaskFailure(workerID int)

	// RecordSteal records a successful steal from a peer's local queue.
	RecordSteal(workerID int)

	// RecordQueueDepth records the current global queue depth. Called
	// periodically, not per-task.
	RecordQueueDepth(depth int)

	// RecordTaskRejected records that a task was rejected (bound reached,
	// or left undrained at shutdown).
	RecordTaskRejected(reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(workerID int, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(workerID int, panicInfo any) {}

// RecordTaskFailure is a no-op.
func (m *NilMetrics) RecordTaskFailure(workerID int) {}

// RecordSteal is a no-op.
func (m *NilMetrics) RecordSteal(workerID int) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(depth int) {}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(reason string) {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a task is rejected by the scheduler.
// This can happen when:
// - The global queue bound is reached
// - A delayed task is pending when shutdown begins
// - A task is still in the global queue after every worker has stopped
//
// Implementations must be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	// HandleRejectedTask is called with the rejected task and the reason
	// (e.g., "queue_full", "shutdown", "undrained").
	HandleRejectedTask(t Task, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that logs rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(t Task, reason string) {
	fmt.Printf("Task rejected (cost=%d): %s\n", t.Cost, reason)
}
