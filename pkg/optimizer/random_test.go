package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSearchExhaustsBudget(t *testing.T) {
	cfg := baseConfig(MethodRandom)
	cfg.MaxIterations = 25

	engine := New(linearBacktest)
	result, err := engine.Optimize(context.Background(), linearDefs(), cfg)
	require.NoError(t, err)

	// continuous scores never stall within a zero threshold
	assert.Equal(t, 25, result.IterationsCompleted)
	assert.False(t, result.Convergence.Converged)
}

func TestRandomSearchConvergesOnFlatSurface(t *testing.T) {
	flat := func(_ context.Context, _ map[string]float64) (map[string]float64, error) {
		return map[string]float64{"sharpe_ratio": 1.0}, nil
	}

	cfg := baseConfig(MethodRandom)
	cfg.MaxIterations = 100

	engine := New(flat)
	result, err := engine.Optimize(context.Background(), linearDefs(), cfg)
	require.NoError(t, err)

	assert.True(t, result.Convergence.Converged)
	assert.GreaterOrEqual(t, result.Convergence.TriggerIteration, convergenceWindow)
	assert.Less(t, result.IterationsCompleted, 100, "convergence stops the search early")
	assert.Equal(t, result.IterationsCompleted, result.Convergence.TriggerIteration)
}
