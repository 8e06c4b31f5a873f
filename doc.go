// Package stealpool provides a work-stealing task scheduler for Go.
//
// A pool of workers cooperatively executes a dynamic stream of independent,
// variable-cost tasks. Each worker owns a local deque it pushes and pops
// without contention; idle workers fall back to a shared global queue and
// then steal from their peers' deques, so load balances without a central
// dispatcher.
//
// # Quick Start
//
// Create a pool, submit tasks, and shut it down:
//
//	pool, err := stealpool.New(4, nil) // 4 workers, default config
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for i := 0; i < 100; i++ {
//		pool.Submit(stealpool.NewTask(nil, uint64(i%10+1)))
//	}
//
//	pool.Shutdown()
//	stats := pool.Join()
//	fmt.Println(stats.TotalProcessed, stats.TotalStolen)
//
// # Key Concepts
//
// Task: the atomic unit of work, carrying an opaque payload and a numeric
// cost hint. The cost sizes execution (the default handler sleeps
// Cost x CostUnit); it never affects scheduling order.
//
// Local queue: a Chase-Lev deque owned by one worker. The owner end is
// cheap and uncontended in the common case; peers steal from the opposite
// end through steal handles. A task is delivered to exactly one consumer.
//
// Global queue: the shared entry point for submissions and the fallback
// work source when local queues run dry.
//
// Shutdown: cooperative and drain-based. Shutdown flips a one-way flag and
// returns; each worker finishes its in-flight task, empties its own backlog
// and helps empty the global queue, then stops. Join waits for all workers
// and returns the aggregate counters.
//
// # Scheduling Loop
//
// Each worker seeks work in order: own deque, global queue, then each peer
// in rotating order. When everything misses, the worker backs off for a
// bounded duration (cut short by new submissions) instead of spinning.
// Panics and handler errors are contained at the loop boundary; one bad
// task never takes down a worker.
//
// # Example
//
//	cfg := &core.Config{
//		Backoff:    200 * time.Microsecond,
//		Discipline: core.DisciplineFIFO,
//		Handler: func(ctx context.Context, t core.Task) error {
//			return process(t.Payload)
//		},
//	}
//	pool, err := stealpool.New(8, cfg)
//
// For Prometheus integration, see the observability/prometheus package and
// examples/prometheus_metrics.
package stealpool
