package core

// WorkerStats represents the final counters a worker publishes when it
// stops. Processed counts every executed task; Stolen counts the subset
// obtained from a peer's local queue.
type WorkerStats struct {
	ID        int
	Processed uint64
	Stolen    uint64
	Failed    uint64
	Panicked  uint64
}

// PoolStats represents runtime observability state for a scheduler.
type PoolStats struct {
	Workers   int
	Queued    int // tasks waiting in the global queue
	Local     int // tasks waiting across all local queues
	Delayed   int // tasks held by the delay manager
	Processed uint64
	Stolen    uint64
	Running   bool
}

// Stats is the aggregate returned by Join once every worker has stopped.
// Dropped counts tasks left in the global queue after draining finished
// (only possible for submissions that raced with shutdown).
type Stats struct {
	TotalProcessed uint64
	TotalStolen    uint64
	TotalFailed    uint64
	Dropped        uint64
	PerWorker      []WorkerStats
}
