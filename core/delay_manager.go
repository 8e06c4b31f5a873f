package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// DelayedTask represents a task scheduled for the future
type DelayedTask struct {
	RunAt time.Time
	Task  Task
	index int // for heap interface
}

// DelayedTaskHeap implements heap.Interface
type DelayedTaskHeap []*DelayedTask

func (h DelayedTaskHeap) Len() int           { return len(h) }
func (h DelayedTaskHeap) Less(i, j int) bool { return h[i].RunAt.Before(h[j].RunAt) }
func (h DelayedTaskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *DelayedTaskHeap) Push(x any) {
	n := len(*h)
	item := x.(*DelayedTask)
	item.index = n
	*h = append(*h, item)
}

func (h *DelayedTaskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *DelayedTaskHeap) Peek() *DelayedTask {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// DelayManager holds future tasks in a time-ordered heap and hands them to
// a sink (the global queue) when due. Stopping it discards pending tasks
// through the drop callback.
type DelayManager struct {
	pq      DelayedTaskHeap
	mu      sync.Mutex
	stopped bool
	wakeup  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	sink func(Task)
	drop func(Task)
}

// NewDelayManager starts a delay manager feeding due tasks into sink.
// drop receives tasks still pending at Stop; it may be nil.
func NewDelayManager(sink func(Task), drop func(Task)) *DelayManager {
	ctx, cancel := context.WithCancel(context.Background())
	dm := &DelayManager{
		pq:     make(DelayedTaskHeap, 0),
		wakeup: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		sink:   sink,
		drop:   drop,
	}
	heap.Init(&dm.pq)
	go dm.loop()
	return dm
}

// AddDelayedTask schedules a task to reach the sink after delay. Once the
// manager has been stopped the task goes straight to the drop callback; the
// loop is gone, so holding it in the heap would lose it silently.
func (dm *DelayManager) AddDelayedTask(t Task, delay time.Duration) {
	dm.mu.Lock()
	if dm.stopped {
		dm.mu.Unlock()
		if dm.drop != nil {
			dm.drop(t)
		}
		return
	}
	item := &DelayedTask{
		RunAt: time.Now().Add(delay),
		Task:  t,
	}
	heap.Push(&dm.pq, item)
	earliest := item.index == 0
	dm.mu.Unlock()

	if earliest {
		select {
		case dm.wakeup <- struct{}{}:
		default:
		}
	}
}

func (dm *DelayManager) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		// Calculate next run time
		nextRun, pending := dm.calculateNextRun()
		if !pending {
			// No tasks, wait for a wakeup
			nextRun = 1000 * time.Hour
		}

		timer.Reset(nextRun)

		select {
		case <-dm.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			// Timer fired, process all expired tasks in one go
			dm.processExpiredTasks()
		case <-dm.wakeup:
			// New task added, need to recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// calculateNextRun determines how long to wait until the next task.
// pending is false when the heap is empty.
func (dm *DelayManager) calculateNextRun() (next time.Duration, pending bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := dm.pq.Peek()
	if item == nil {
		return 0, false
	}

	now := time.Now()
	if item.RunAt.Before(now) {
		return 0, true // Already expired
	}
	return item.RunAt.Sub(now), true
}

// processExpiredTasks hands every due task to the sink
func (dm *DelayManager) processExpiredTasks() {
	dm.mu.Lock()

	now := time.Now()
	// Collect all expired tasks to avoid holding lock while posting
	var expired []*DelayedTask

	for dm.pq.Len() > 0 {
		item := dm.pq.Peek()
		if item.RunAt.After(now) {
			break // No more expired tasks
		}
		heap.Pop(&dm.pq)
		expired = append(expired, item)
	}

	dm.mu.Unlock()

	// Post expired tasks outside the lock
	for _, item := range expired {
		dm.sink(item.Task)
	}
}

// Stop halts the loop and discards pending tasks through the drop callback.
// Idempotent.
func (dm *DelayManager) Stop() {
	dm.cancel()

	dm.mu.Lock()
	dm.stopped = true
	pending := dm.pq
	dm.pq = make(DelayedTaskHeap, 0)
	heap.Init(&dm.pq)
	dm.mu.Unlock()

	if dm.drop != nil {
		for _, item := range pending {
			dm.drop(item.Task)
		}
	}
}

func (dm *DelayManager) TaskCount() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.pq)
}
