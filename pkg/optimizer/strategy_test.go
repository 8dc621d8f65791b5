package optimizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPtr(v int64) *int64 { return &v }

// linearBacktest rewards the parameter p linearly, making the optimum
// trivially the upper bound of p.
func linearBacktest(_ context.Context, params map[string]float64) (map[string]float64, error) {
	return map[string]float64{
		"sharpe_ratio": params["p"],
		"max_drawdown": 0.05,
	}, nil
}

func linearDefs() []ParameterDefinition {
	return []ParameterDefinition{
		{Name: "p", Kind: KindReal, Default: 50, Min: 0, Max: 100, Optimizable: true},
		{Name: "q", Kind: KindInteger, Default: 5, Min: 1, Max: 10, Optimizable: true},
	}
}

func baseConfig(method Method) Config {
	return Config{
		Method:          method,
		Objective:       ObjectiveSharpeRatio,
		MaxIterations:   30,
		PopulationSize:  10,
		Timeout:         time.Minute,
		ParallelWorkers: 4,
		RandomSeed:      seedPtr(42),
	}
}

// assertWithinBounds checks the shared history invariant: every evaluated
// candidate stays inside each optimizable parameter's bounds.
func assertWithinBounds(t *testing.T, history []Outcome, defs []ParameterDefinition) {
	t.Helper()
	for _, o := range history {
		for _, d := range defs {
			if !d.Optimizable {
				continue
			}
			v, ok := o.Candidate[d.Name]
			require.True(t, ok, "candidate missing parameter %s", d.Name)
			assert.GreaterOrEqual(t, v, d.Min)
			assert.LessOrEqual(t, v, d.Max)
			if d.Kind == KindInteger {
				assert.Equal(t, math.Round(v), v)
			}
		}
	}
}

func TestEveryMethodProducesBoundedHistory(t *testing.T) {
	for _, method := range []Method{MethodGrid, MethodRandom, MethodGreedy, MethodGenetic} {
		t.Run(string(method), func(t *testing.T) {
			engine := New(linearBacktest)
			result, err := engine.Optimize(context.Background(), linearDefs(), baseConfig(method))
			require.NoError(t, err)

			assert.NotEmpty(t, result.History)
			assert.Equal(t, len(result.History), result.IterationsCompleted)
			assert.Equal(t, method, result.Convergence.Method)
			assertWithinBounds(t, result.History, linearDefs())
		})
	}
}

func TestEveryMethodIsReproducibleUnderFixedSeed(t *testing.T) {
	for _, method := range []Method{MethodGrid, MethodRandom, MethodGreedy, MethodGenetic} {
		t.Run(string(method), func(t *testing.T) {
			engine := New(linearBacktest)

			first, err := engine.Optimize(context.Background(), linearDefs(), baseConfig(method))
			require.NoError(t, err)
			second, err := engine.Optimize(context.Background(), linearDefs(), baseConfig(method))
			require.NoError(t, err)

			assert.Equal(t, first.History, second.History)
			assert.Equal(t, first.BestParameters, second.BestParameters)
			assert.Equal(t, first.BestScore, second.BestScore)
		})
	}
}
