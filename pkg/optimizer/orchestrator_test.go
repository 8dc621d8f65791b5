package optimizer

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"unknown method", func(c *Config) { c.Method = "simulated_annealing" }, "method"},
		{"unknown objective", func(c *Config) { c.Objective = "alpha" }, "objective"},
		{"custom without function", func(c *Config) { c.Objective = ObjectiveCustom }, "objective"},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, "max_iterations"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"zero workers", func(c *Config) { c.ParallelWorkers = 0 }, "parallel_workers"},
		{"negative threshold", func(c *Config) { c.ConvergenceThreshold = -1 }, "convergence_threshold"},
		{"tiny genetic population", func(c *Config) { c.Method = MethodGenetic; c.PopulationSize = 1 }, "population_size"},
		{"bad constraint op", func(c *Config) { c.Constraints = []Constraint{{Metric: "win_rate", Op: "==", Bound: 1}} }, "constraints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(MethodRandom)
			tt.edit(&cfg)

			_, err := New(linearBacktest).Optimize(context.Background(), linearDefs(), cfg)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestOptimizeRejectsEmptyParameterSpace(t *testing.T) {
	defs := []ParameterDefinition{
		{Name: "fixed", Kind: KindReal, Default: 1, Min: 0, Max: 2},
	}

	_, err := New(linearBacktest).Optimize(context.Background(), defs, baseConfig(MethodRandom))
	assert.ErrorIs(t, err, ErrInvalidParameterSpace)
}

func TestOptimizeAllCandidatesViolateConstraints(t *testing.T) {
	backtest := func(_ context.Context, _ map[string]float64) (map[string]float64, error) {
		return map[string]float64{"sharpe_ratio": 2.0, "max_drawdown": 0.5}, nil
	}

	cfg := baseConfig(MethodRandom)
	cfg.MaxIterations = 15
	cfg.Constraints = []Constraint{{Metric: "max_drawdown", Op: OpLE, Bound: 0.1}}

	result, err := New(backtest).Optimize(context.Background(), linearDefs(), cfg)
	require.NoError(t, err, "an all-violating run is a result, not an error")

	assert.Nil(t, result.BestParameters)
	assert.True(t, math.IsInf(result.BestScore, -1))
	assert.Nil(t, result.PerformanceMetrics)
	assert.Len(t, result.History, 15)
	for _, o := range result.History {
		assert.True(t, o.Failed)
	}
}

func TestOptimizeNaNMetricNeverLatchesAsBest(t *testing.T) {
	// the first evaluation yields NaN, every later one a finite positive
	// score; the NaN must land in the history as failed, not as the best
	var calls atomic.Int64
	backtest := func(_ context.Context, params map[string]float64) (map[string]float64, error) {
		if calls.Add(1) == 1 {
			return map[string]float64{"sharpe_ratio": math.NaN()}, nil
		}
		return map[string]float64{"sharpe_ratio": params["p"]}, nil
	}

	cfg := baseConfig(MethodRandom)
	cfg.MaxIterations = 20
	cfg.ParallelWorkers = 1

	result, err := New(backtest).Optimize(context.Background(), linearDefs(), cfg)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(result.BestScore))
	require.NotNil(t, result.BestParameters)

	failed := 0
	for _, o := range result.History {
		require.False(t, math.IsNaN(o.Score), "no NaN score may enter the history unfailed")
		if o.Failed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestOptimizeTimeoutReturnsPartialResult(t *testing.T) {
	slow := func(_ context.Context, params map[string]float64) (map[string]float64, error) {
		time.Sleep(30 * time.Millisecond)
		return map[string]float64{"sharpe_ratio": params["p"]}, nil
	}

	cfg := baseConfig(MethodRandom)
	cfg.MaxIterations = 1000
	cfg.Timeout = 20 * time.Millisecond
	cfg.ParallelWorkers = 4

	start := time.Now()
	result, err := New(slow).Optimize(context.Background(), linearDefs(), cfg)
	elapsed := time.Since(start)

	require.NoError(t, err, "a timed-out run is not an error")
	assert.True(t, result.Convergence.TimedOut)
	assert.NotEmpty(t, result.History, "in-flight evaluations finish before returning")
	assert.Less(t, result.IterationsCompleted, 1000)
	assert.Less(t, elapsed, 2*time.Second, "return is bounded by roughly one evaluation past the deadline")
}

func TestOptimizeAssemblesResultFields(t *testing.T) {
	cfg := baseConfig(MethodRandom)
	cfg.MaxIterations = 20

	result, err := New(linearBacktest).Optimize(context.Background(), linearDefs(), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Positive(t, result.ExecutionTime)
	assert.Contains(t, result.ParameterSensitivity, "p")
	assert.Contains(t, result.ParameterSensitivity, "q")
	// the linear surface makes p the dominant driver
	assert.Greater(t, result.ParameterSensitivity["p"], result.ParameterSensitivity["q"])
	require.NotNil(t, result.PerformanceMetrics)
	assert.Equal(t, result.BestScore, result.PerformanceMetrics["sharpe_ratio"])
}

// explodingStrategy simulates a control-loop failure, which must surface as a
// fatal OptimizationFailedError rather than a failed candidate.
type explodingStrategy struct{}

func (explodingStrategy) Run(context.Context, *Space, Config, *Evaluator) (*searchResult, error) {
	panic("scheduler invariant broken")
}

func TestOptimizeWrapsStrategyPanic(t *testing.T) {
	strategies["exploding"] = explodingStrategy{}
	defer delete(strategies, "exploding")

	cfg := baseConfig("exploding")
	_, err := New(linearBacktest).Optimize(context.Background(), linearDefs(), cfg)

	var oerr *OptimizationFailedError
	require.ErrorAs(t, err, &oerr)
	assert.Contains(t, oerr.Error(), "scheduler invariant broken")
}

func TestTopOutcomes(t *testing.T) {
	result := &Result{History: []Outcome{
		{Candidate: Candidate{"p": 1}, Score: 1.0},
		{Candidate: Candidate{"p": 2}, Score: math.Inf(-1), Failed: true},
		{Candidate: Candidate{"p": 3}, Score: 3.0},
		{Candidate: Candidate{"p": 4}, Score: 2.0},
	}}

	top := result.TopOutcomes(2)
	require.Len(t, top, 2)
	assert.Equal(t, 3.0, top[0].Score)
	assert.Equal(t, 2.0, top[1].Score)

	all := result.TopOutcomes(10)
	assert.Len(t, all, 3, "failed outcomes never appear in the ranking")
}

func TestWorkersCappedByEngineMaximum(t *testing.T) {
	cfg := baseConfig(MethodRandom)
	cfg.ParallelWorkers = 500
	assert.Equal(t, MaxParallelWorkers, cfg.workers())

	cfg.ParallelWorkers = 3
	assert.Equal(t, 3, cfg.workers())
}
