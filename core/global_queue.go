package core

import (
	"errors"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// ErrQueueFull is returned by Push when a capacity bound is configured and
// the queue is at its limit. Recoverable: the caller may retry or drop.
var ErrQueueFull = errors.New("stealpool: global queue full")

// GlobalQueue is the multi-producer, multi-consumer entry point for
// submissions and the fallback work source for idle workers.
//
// It is unbounded by default; a positive bound makes Push fail with
// ErrQueueFull instead of growing. Push and TryPop never block. A task
// popped here is delivered to exactly one consumer: all access happens under
// the queue mutex.
type GlobalQueue struct {
	mu    sync.Mutex
	tasks *linkedlistqueue.Queue
	bound int // <= 0 means unbounded

	// signal wakes idle workers parked in backoff when new work arrives.
	// Buffered; a full channel is only a lost optimization hint, the task
	// is already queued.
	signal chan struct{}
}

// NewGlobalQueue creates a global queue. bound <= 0 means unbounded;
// signalCap sizes the wakeup channel (typically 2x worker count).
func NewGlobalQueue(bound int, signalCap int) *GlobalQueue {
	if signalCap < 1 {
		signalCap = 1
	}
	return &GlobalQueue{
		tasks:  linkedlistqueue.New(),
		bound:  bound,
		signal: make(chan struct{}, signalCap),
	}
}

// Push enqueues a task. Never blocks. Fails with ErrQueueFull only when a
// bound is configured and reached.
func (q *GlobalQueue) Push(t Task) error {
	q.mu.Lock()
	if q.bound > 0 && q.tasks.Size() >= q.bound {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.tasks.Enqueue(t)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// TryPop removes and returns the oldest task, if any. Never blocks.
func (q *GlobalQueue) TryPop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.tasks.Dequeue()
	if !ok {
		return Task{}, false
	}
	return v.(Task), true
}

// Len returns the current queue depth.
func (q *GlobalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Size()
}

// IsEmpty reports whether the queue is currently empty.
func (q *GlobalQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Signal exposes the wakeup channel so workers can interrupt their backoff
// as soon as a submission lands instead of sleeping the full duration.
func (q *GlobalQueue) Signal() <-chan struct{} {
	return q.signal
}

// Drain removes and returns all remaining tasks. Used by Join to account
// for tasks left behind once every worker has stopped.
func (q *GlobalQueue) Drain() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tasks.Empty() {
		return nil
	}
	remaining := make([]Task, 0, q.tasks.Size())
	for {
		v, ok := q.tasks.Dequeue()
		if !ok {
			break
		}
		remaining = append(remaining, v.(Task))
	}
	return remaining
}
