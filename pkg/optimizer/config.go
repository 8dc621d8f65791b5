package optimizer

import (
	"fmt"
	"math/rand"
	"time"
)

// ============================================================================
// METHODS & OBJECTIVES
// ============================================================================

// Method selects a search strategy implementation
type Method string

const (
	MethodGrid    Method = "grid"
	MethodRandom  Method = "random"
	MethodGreedy  Method = "greedy"
	MethodGenetic Method = "genetic"
)

// Objective selects the scalar score a search maximizes. Minimize-type
// objectives (max_drawdown, volatility) are negated at evaluation time so
// every strategy can uniformly treat higher as better.
type Objective string

const (
	ObjectiveSharpeRatio  Objective = "sharpe_ratio"
	ObjectiveTotalReturn  Objective = "total_return"
	ObjectiveMaxDrawdown  Objective = "max_drawdown"
	ObjectiveWinRate      Objective = "win_rate"
	ObjectiveProfitFactor Objective = "profit_factor"
	ObjectiveVolatility   Objective = "volatility"
	ObjectiveCustom       Objective = "custom"
)

// maximizeObjectives are read straight off the metrics map; minimizeObjectives
// are negated.
var (
	maximizeObjectives = map[Objective]bool{
		ObjectiveSharpeRatio:  true,
		ObjectiveTotalReturn:  true,
		ObjectiveWinRate:      true,
		ObjectiveProfitFactor: true,
	}
	minimizeObjectives = map[Objective]bool{
		ObjectiveMaxDrawdown: true,
		ObjectiveVolatility:  true,
	}
)

// CustomObjective computes a fitness score from the full backtest metrics
// mapping. Higher must mean better.
type CustomObjective func(metrics map[string]float64) float64

// ============================================================================
// CONSTRAINTS
// ============================================================================

// ConstraintOp is the comparison applied by a constraint
type ConstraintOp string

const (
	OpLE ConstraintOp = "<="
	OpGE ConstraintOp = ">="
)

// Constraint is a hard pass/fail bound on a raw backtest metric, independent
// of the objective. A candidate violating any constraint is recorded as
// failed with score -Inf.
type Constraint struct {
	Metric string       `json:"metric"`
	Op     ConstraintOp `json:"op"`
	Bound  float64      `json:"bound"`
}

// Satisfied reports whether the metrics pass the constraint. A metric absent
// from the mapping cannot be verified and counts as a violation.
func (c Constraint) Satisfied(metrics map[string]float64) bool {
	v, ok := metrics[c.Metric]
	if !ok {
		return false
	}
	switch c.Op {
	case OpLE:
		return v <= c.Bound
	case OpGE:
		return v >= c.Bound
	}
	return false
}

// ============================================================================
// OPTIMIZATION CONFIG
// ============================================================================

// MaxParallelWorkers is the engine-wide ceiling on concurrently in-flight
// backtest evaluations within a single run. The bound is per run, not
// process-global, so concurrent runs each get their own budget.
const MaxParallelWorkers = 16

// convergenceWindow is the trailing-history window inspected by the
// convergence monitor.
const convergenceWindow = 10

// Config holds the settings for one optimization run
type Config struct {
	Method               Method          `json:"method"`
	Objective            Objective       `json:"objective"`
	Custom               CustomObjective `json:"-"` // required when Objective is "custom"
	MaxIterations        int             `json:"max_iterations"`
	PopulationSize       int             `json:"population_size"` // genetic only
	ConvergenceThreshold float64         `json:"convergence_threshold"`
	Timeout              time.Duration   `json:"timeout"`
	ParallelWorkers      int             `json:"parallel_workers"`
	RandomSeed           *int64          `json:"random_seed,omitempty"`
	Constraints          []Constraint    `json:"constraints,omitempty"`
}

// Validate rejects unknown methods and objectives and non-positive budgets
// before any search work is dispatched.
func (c Config) Validate() error {
	if _, ok := strategies[c.Method]; !ok {
		return &ConfigError{Field: "method", Message: fmt.Sprintf("unknown method %q", c.Method)}
	}
	switch {
	case maximizeObjectives[c.Objective], minimizeObjectives[c.Objective]:
	case c.Objective == ObjectiveCustom:
		if c.Custom == nil {
			return &ConfigError{Field: "objective", Message: "custom objective selected but no function provided"}
		}
	default:
		return &ConfigError{Field: "objective", Message: fmt.Sprintf("unknown objective %q", c.Objective)}
	}
	if c.MaxIterations < 1 {
		return &ConfigError{Field: "max_iterations", Message: "must be positive"}
	}
	if c.Method == MethodGenetic && c.PopulationSize < 2 {
		return &ConfigError{Field: "population_size", Message: "genetic search needs a population of at least 2"}
	}
	if c.ConvergenceThreshold < 0 {
		return &ConfigError{Field: "convergence_threshold", Message: "must be non-negative"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Message: "must be positive"}
	}
	if c.ParallelWorkers < 1 {
		return &ConfigError{Field: "parallel_workers", Message: "must be positive"}
	}
	for _, con := range c.Constraints {
		if con.Op != OpLE && con.Op != OpGE {
			return &ConfigError{Field: "constraints", Message: fmt.Sprintf("unknown operator %q for metric %q", con.Op, con.Metric)}
		}
	}
	return nil
}

// workers returns the effective evaluation concurrency, capped engine-wide.
func (c Config) workers() int {
	if c.ParallelWorkers > MaxParallelWorkers {
		return MaxParallelWorkers
	}
	return c.ParallelWorkers
}

// newRNG builds the single per-run randomness source. With RandomSeed set,
// every randomized operation in the run derives from this generator and is
// fully reproducible.
func (c Config) newRNG() *rand.Rand {
	seed := time.Now().UnixNano()
	if c.RandomSeed != nil {
		seed = *c.RandomSeed
	}
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- non-cryptographic use: searches need reproducible randomness
}

// monitor builds the convergence monitor for this run.
func (c Config) monitor() ConvergenceMonitor {
	return ConvergenceMonitor{Threshold: c.ConvergenceThreshold, Window: convergenceWindow}
}
