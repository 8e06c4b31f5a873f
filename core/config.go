package core

import (
	"os"
	"strings"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Discipline selects the owner-end pop order of a worker's local queue.
// Stealers always take from the opposite (FIFO) end.
type Discipline int

const (
	// DisciplineLIFO pops the most recently pushed task first. Better cache
	// locality; the default.
	DisciplineLIFO Discipline = iota

	// DisciplineFIFO pops the oldest task first. The owner pops through its
	// own steal handle, same end as thieves.
	DisciplineFIFO
)

// String returns the yaml/cli spelling of the discipline.
func (d Discipline) String() string {
	if d == DisciplineFIFO {
		return "fifo"
	}
	return "lifo"
}

// ParseDiscipline maps "lifo"/"fifo" (case-insensitive) to a Discipline.
// Unknown values fall back to LIFO.
func ParseDiscipline(s string) Discipline {
	if strings.EqualFold(s, "fifo") {
		return DisciplineFIFO
	}
	return DisciplineLIFO
}

const (
	defaultWorkers  = 4
	defaultBackoff  = 100 * time.Microsecond
	defaultCostUnit = 10 * time.Microsecond
)

// Config holds scheduler options. All handlers are optional; if not
// provided, default implementations will be used.
type Config struct {
	// Backoff is the bounded pause a worker takes when no work is found
	// anywhere. The pause is cut short when a new submission lands.
	Backoff time.Duration

	// Discipline is the owner-end pop order of local queues.
	Discipline Discipline

	// GlobalBound, when positive, caps the global queue; Submit then fails
	// with ErrQueueFull instead of growing. Zero means unbounded.
	GlobalBound int

	// CostUnit scales Task.Cost in the default sleep handler. Ignored when
	// a custom Handler is set.
	CostUnit time.Duration

	// Handler executes tasks. Defaults to SleepHandler(CostUnit).
	Handler Handler

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// FailureHandler is called when a handler returns an error. Defaults to
	// DefaultFailureHandler.
	FailureHandler FailureHandler

	// RejectedTaskHandler is called when a task is rejected or dropped.
	// Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// Metrics records execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives lifecycle and error logs. Defaults to DefaultLogger.
	Logger Logger
}

// DefaultConfig returns a config with default values and handlers.
func DefaultConfig() *Config {
	cfg := &Config{
		Backoff:    defaultBackoff,
		Discipline: DisciplineLIFO,
		CostUnit:   defaultCostUnit,
	}
	return cfg.withDefaults()
}

// withDefaults fills every unset field in place and returns the config.
func (c *Config) withDefaults() *Config {
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.CostUnit <= 0 {
		c.CostUnit = defaultCostUnit
	}
	if c.Handler == nil {
		c.Handler = SleepHandler(c.CostUnit)
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &DefaultPanicHandler{}
	}
	if c.FailureHandler == nil {
		c.FailureHandler = &DefaultFailureHandler{}
	}
	if c.RejectedTaskHandler == nil {
		c.RejectedTaskHandler = &DefaultRejectedTaskHandler{}
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	return c
}

// fileConfig mirrors config.yaml
type fileConfig struct {
	Workers     int    `yaml:"workers"`       // 4 (by default)
	BackoffUS   int    `yaml:"backoff_us"`    // 100 (by default)
	Discipline  string `yaml:"discipline"`    // "lifo" or "fifo"
	GlobalBound int    `yaml:"global_bound"`  // 0 = unbounded
	CostUnitUS  int    `yaml:"cost_unit_us"`  // 10 (by default)
}

// LoadConfig reads YAML and overrides defaults; empty or missing path =
// defaults only. Returns the worker count alongside the config since the
// scheduler takes them separately.
func LoadConfig(path string) (int, *Config) {
	workers := defaultWorkers
	cfg := DefaultConfig()

	if path == "" {
		return workers, cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return workers, cfg
	}

	var fc fileConfig
	_ = yaml.Unmarshal(data, &fc)

	// sanity clamps
	if fc.Workers > 0 {
		workers = fc.Workers
	}
	if fc.BackoffUS > 0 {
		cfg.Backoff = time.Duration(fc.BackoffUS) * time.Microsecond
	}
	if fc.CostUnitUS > 0 {
		cfg.CostUnit = time.Duration(fc.CostUnitUS) * time.Microsecond
		cfg.Handler = SleepHandler(cfg.CostUnit)
	}
	if fc.GlobalBound > 0 {
		cfg.GlobalBound = fc.GlobalBound
	}
	cfg.Discipline = ParseDiscipline(fc.Discipline)

	return workers, cfg
}
