// Optimization run orchestration
package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ============================================================================
// RESULT
// ============================================================================

// ConvergenceInfo describes how a run stopped.
type ConvergenceInfo struct {
	Method           Method `json:"method"`
	Converged        bool   `json:"converged"`
	TriggerIteration int    `json:"trigger_iteration,omitempty"`
	TimedOut         bool   `json:"timed_out"`
}

// Result is the read-only outcome of one optimization run. History is in
// evaluation order, which under a fixed random seed is identical across runs.
type Result struct {
	RunID                uuid.UUID          `json:"run_id"`
	BestParameters       Candidate          `json:"best_parameters,omitempty"` // nil when every candidate failed
	BestScore            float64            `json:"best_score"`
	History              []Outcome          `json:"history"`
	Convergence          ConvergenceInfo    `json:"convergence_info"`
	IterationsCompleted  int                `json:"iterations_completed"`
	PerformanceMetrics   map[string]float64 `json:"performance_metrics,omitempty"`
	ParameterSensitivity map[string]float64 `json:"parameter_sensitivity"`
	ExecutionTime        time.Duration      `json:"execution_time"`
}

// TopOutcomes returns the n best successful outcomes sorted by descending
// score. Failed evaluations are excluded.
func (r *Result) TopOutcomes(n int) []Outcome {
	top := make([]Outcome, 0, n)
	for _, o := range r.History {
		if !o.Failed {
			top = append(top, o)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Score > top[j].Score
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

// ============================================================================
// ORCHESTRATOR
// ============================================================================

// Orchestrator is the engine's entry point. Construct one per call site or
// per service lifetime; it holds no hidden process-wide state, so concurrent
// runs are independent.
type Orchestrator struct {
	backtest BacktestFunc
}

// New builds an orchestrator around the external backtest collaborator.
func New(backtest BacktestFunc) *Orchestrator {
	return &Orchestrator{backtest: backtest}
}

// Optimize validates the config, dispatches the selected search strategy,
// and assembles the final result with sensitivity scores and timing. A timed
// out run is not an error: it returns a normal Result with
// Convergence.TimedOut set and whatever best candidate was found.
func (o *Orchestrator) Optimize(ctx context.Context, defs []ParameterDefinition, cfg Config) (*Result, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sp, err := NewSpace(defs)
	if err != nil {
		return nil, err
	}
	strat := strategies[cfg.Method] // cfg.Validate guarantees the entry exists

	runID := uuid.New()
	log.Info().
		Str("run_id", runID.String()).
		Str("method", string(cfg.Method)).
		Str("objective", string(cfg.Objective)).
		Int("optimizable_parameters", len(sp.Optimizable())).
		Int("max_iterations", cfg.MaxIterations).
		Msg("Starting optimization run")

	eval := newEvaluator(o.backtest, defs, cfg)
	sr, err := runStrategy(ctx, strat, sp, cfg, eval)
	if err != nil {
		var partial []Outcome
		if sr != nil {
			partial = sr.History
		}
		return nil, &OptimizationFailedError{Cause: err, PartialHistory: partial}
	}

	result := &Result{
		RunID:     runID,
		BestScore: math.Inf(-1),
		History:   sr.History,
		Convergence: ConvergenceInfo{
			Method:           cfg.Method,
			Converged:        sr.Converged,
			TriggerIteration: sr.TriggerIteration,
			TimedOut:         sr.TimedOut,
		},
		IterationsCompleted:  len(sr.History),
		ParameterSensitivity: AnalyzeSensitivity(sr.History),
		ExecutionTime:        time.Since(start),
	}
	if sr.Best != nil {
		result.BestParameters = sr.Best.Candidate
		result.BestScore = sr.Best.Score
		result.PerformanceMetrics = sr.Best.Metrics
	}

	log.Info().
		Str("run_id", runID.String()).
		Int("iterations", result.IterationsCompleted).
		Float64("best_score", result.BestScore).
		Bool("converged", result.Convergence.Converged).
		Bool("timed_out", result.Convergence.TimedOut).
		Dur("duration", result.ExecutionTime).
		Msg("Optimization run complete")

	return result, nil
}

// runStrategy isolates the strategy control loop: a panic there is a fatal
// run failure, not a per-candidate one.
func runStrategy(ctx context.Context, strat searchStrategy, sp *Space, cfg Config, eval *Evaluator) (sr *searchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search strategy panic: %v", r)
		}
	}()
	return strat.Run(ctx, sp, cfg, eval)
}
