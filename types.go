package stealpool

import "github.com/stealpool/go-stealpool/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the stealpool package for most use cases.

// Task is the unit of schedulable work (opaque payload + cost hint)
type Task = core.Task

// Handler executes a task
type Handler = core.Handler

// Config holds scheduler options
type Config = core.Config

// Discipline selects the owner-end pop order of local queues
type Discipline = core.Discipline

// Stats is the aggregate returned by Join
type Stats = core.Stats

// WorkerStats are the final counters one worker publishes when it stops
type WorkerStats = core.WorkerStats

// Discipline constants
const (
	DisciplineLIFO Discipline = core.DisciplineLIFO
	DisciplineFIFO Discipline = core.DisciplineFIFO
)

// Sentinel errors
var (
	// ErrNoWorkers is returned by New when the worker count is not positive
	ErrNoWorkers = core.ErrNoWorkers

	// ErrQueueFull is returned by Submit when a configured bound is reached
	ErrQueueFull = core.ErrQueueFull
)

// Convenience constructors and helpers
var (
	NewTask       = core.NewTask
	DefaultConfig = core.DefaultConfig
	LoadConfig    = core.LoadConfig
	SleepHandler  = core.SleepHandler

	// CurrentWorker retrieves the executing worker from a task context
	CurrentWorker = core.CurrentWorker
)
