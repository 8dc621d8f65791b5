package optimizer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// gridPointsPerDimension is the axis resolution for grid enumeration. The
// grid is subsampled down to max_iterations when the product across
// dimensions exceeds it.
const gridPointsPerDimension = 10

// gridSearch exhaustively evaluates an evenly spaced grid over the space.
// No state is carried between evaluations, so the grid is fanned out in
// worker-sized batches.
type gridSearch struct{}

func (gridSearch) Run(ctx context.Context, sp *Space, cfg Config, eval *Evaluator) (*searchResult, error) {
	rng := cfg.newRNG()
	grid := sp.BuildGrid(gridPointsPerDimension, cfg.MaxIterations, rng)

	log.Info().
		Int("candidates", len(grid)).
		Int("workers", cfg.workers()).
		Msg("Starting grid search")

	res := &searchResult{}
	dl := newDeadline(cfg.Timeout)
	workers := cfg.workers()

	for start := 0; start < len(grid); start += workers {
		if dl.exceeded() {
			res.TimedOut = true
			break
		}

		end := start + workers
		if end > len(grid) {
			end = len(grid)
		}
		res.record(evaluateBatch(ctx, eval, grid[start:end], workers))
		logProgress(MethodGrid, len(res.History), len(grid))
	}

	return res, nil
}
