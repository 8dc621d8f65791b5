package optimizer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// randomSearch draws independent uniform candidates up to the iteration
// budget, checking the convergence monitor after every batch.
type randomSearch struct{}

func (randomSearch) Run(ctx context.Context, sp *Space, cfg Config, eval *Evaluator) (*searchResult, error) {
	rng := cfg.newRNG()
	monitor := cfg.monitor()

	log.Info().
		Int("max_iterations", cfg.MaxIterations).
		Int("workers", cfg.workers()).
		Msg("Starting random search")

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
			batch[i] = sp.Sample(rng)
		}

		res.record(evaluateBatch(ctx, eval, batch, workers))
		logProgress(MethodRandom, len(res.History), cfg.MaxIterations)

		if monitor.Converged(res.History) {
			res.Converged = true
			res.TriggerIteration = len(res.History)
			log.Info().Int("iteration", res.TriggerIteration).Msg("Random search converged early")
			break
		}
	}

	return res, nil
}
