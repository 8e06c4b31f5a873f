package core

import (
	"context"
	"time"
)

// Task is the unit of schedulable work. It carries an opaque payload and a
// numeric cost hint. The cost only sizes execution (the default handler
// sleeps Cost x CostUnit); it has no effect on scheduling order.
//
// A Task is immutable once submitted.
type Task struct {
	Payload any
	Cost    uint64

	// done, when non-nil, receives the handler result exactly once after
	// execution. Set by SubmitAndWait; nil for plain submissions.
	done chan error
}

// NewTask creates a task with the given payload and cost hint.
func NewTask(payload any, cost uint64) Task {
	return Task{Payload: payload, Cost: cost}
}

// WithDone returns a copy of the task wired to a completion channel.
// The channel must have capacity >= 1 so workers never block on it.
func (t Task) WithDone(done chan error) Task {
	t.done = done
	return t
}

// notifyDone delivers the handler result to the completion channel, if any.
func (t Task) notifyDone(err error) {
	if t.done == nil {
		return
	}
	select {
	case t.done <- err:
	default:
	}
}

// Handler executes a task. Implementations may inspect the payload and use
// the cost hint to size the work. Returning an error reports a task failure;
// it never stops the worker.
type Handler func(ctx context.Context, t Task) error

// SleepHandler returns the default handler: it simulates work by sleeping
// Cost x unit. The sleep is deliberately not cancellable; task execution is
// not preemptible.
func SleepHandler(unit time.Duration) Handler {
	return func(ctx context.Context, t Task) error {
		time.Sleep(time.Duration(t.Cost) * unit)
		return nil
	}
}

// =============================================================================
// Context Helper
// =============================================================================

// LocalSubmitter accepts worker-affine submissions. A task running on a
// worker can push follow-up work onto that worker's own local queue.
type LocalSubmitter interface {
	SubmitLocal(t Task)
}

type workerKeyType struct{}

var workerKey workerKeyType

// WithWorker returns a context carrying the executing worker.
func WithWorker(ctx context.Context, w LocalSubmitter) context.Context {
	return context.WithValue(ctx, workerKey, w)
}

// CurrentWorker retrieves the executing worker from a task context, or nil
// when the context does not belong to a worker goroutine.
func CurrentWorker(ctx context.Context) LocalSubmitter {
	if v := ctx.Value(workerKey); v != nil {
		return v.(LocalSubmitter)
	}
	return nil
}
