package optimizer

import (
	"context"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// greedyRefinement is an exploitation-guided search: an initial uniform
// sampling phase finds a working region, then subsequent draws concentrate in
// a shrinking neighborhood around the best candidate seen so far.
//
// This is an approximation, not Bayesian optimization: there is no surrogate
// model and no acquisition function. Treat its results as a cheap refinement
// of random search.
type greedyRefinement struct{}

func (greedyRefinement) Run(ctx context.Context, sp *Space, cfg Config, eval *Evaluator) (*searchResult, error) {
	rng := cfg.newRNG()
	monitor := cfg.monitor()

	seedCount := cfg.MaxIterations / 4
	if seedCount > 10 {
		seedCount = 10
	}
	if seedCount < 1 {
		seedCount = 1
	}

	log.Info().
		Int("max_iterations", cfg.MaxIterations).
		Int("seed_phase", seedCount).
		Int("workers", cfg.workers()).
		Msg("Starting greedy refinement search")

	res := &searchResult{}
	dl := newDeadline(cfg.Timeout)
	workers := cfg.workers()

	for len(res.History) < cfg.MaxIterations {
		if dl.exceeded() {
			res.TimedOut = true
			break
		}

		n := cfg.MaxIterations - len(res.History)
		if n > workers {
			n = workers
		}
		batch := make([]Candidate, n)
		for i := range batch {
			if len(res.History)+i < seedCount || res.Best == nil {
				batch[i] = sp.Sample(rng)
				continue
			}
			remaining := float64(cfg.MaxIterations-len(res.History)) / float64(cfg.MaxIterations)
			batch[i] = refineAround(sp, res.Best.Candidate, remaining, rng)
		}

		res.record(evaluateBatch(ctx, eval, batch, workers))
		logProgress(MethodGreedy, len(res.History), cfg.MaxIterations)

		if monitor.Converged(res.History) {
			res.Converged = true
			res.TriggerIteration = len(res.History)
			log.Info().Int("iteration", res.TriggerIteration).Msg("Greedy refinement converged early")
			break
		}
	}

	return res, nil
}

// refineAround samples a candidate from a neighborhood of best. The
// neighborhood width per parameter is the full range scaled by a shrink
// factor that decays with the spent iteration budget, with a floor so late
// draws still explore a sliver of the space.
func refineAround(sp *Space, best Candidate, remainingFraction float64, rng *rand.Rand) Candidate {
	shrink := 0.5*remainingFraction + 0.1

	c := best.Clone()
	for _, d := range sp.Optimizable() {
		half := (d.Max - d.Min) * shrink / 2
		lo := math.Max(d.Min, best[d.Name]-half)
		hi := math.Min(d.Max, best[d.Name]+half)

		v := lo + rng.Float64()*(hi-lo)
		if d.Kind == KindInteger {
			ilo, ihi := integerBounds(d)
			v = clamp(math.Round(v), ilo, ihi)
		}
		c[d.Name] = v
	}
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
