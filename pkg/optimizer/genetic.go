// Genetic search over strategy parameter space
package optimizer

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"
)

const (
	tournamentSize = 3
	mutationRate   = 0.1
)

// geneticSearch evolves a population of candidates across max_iterations
// generations with tournament selection, single-point crossover over the
// ordered optimizable parameter names, and per-parameter mutation. The new
// generation fully replaces the old one; the best outcome ever seen is
// tracked outside the population, since individual generations can regress.
type geneticSearch struct{}

func (geneticSearch) Run(ctx context.Context, sp *Space, cfg Config, eval *Evaluator) (*searchResult, error) {
	rng := cfg.newRNG()
	names := sp.Names()

	log.Info().
		Int("population", cfg.PopulationSize).
		Int("generations", cfg.MaxIterations).
		Float64("mutation_rate", mutationRate).
		Msg("Starting genetic search")

	population := make([]Candidate, cfg.PopulationSize)
	for i := range population {
		population[i] = sp.Sample(rng)
	}

	res := &searchResult{}
	dl := newDeadline(cfg.Timeout)

	for gen := 0; gen < cfg.MaxIterations; gen++ {
		if dl.exceeded() {
			res.TimedOut = true
			break
		}

		evaluated := evaluateBatchSem(ctx, eval, population, cfg.workers())
		res.record(evaluated)

		best, worst := generationSpread(evaluated)
		log.Info().
			Int("generation", gen+1).
			Int("total", cfg.MaxIterations).
			Float64("gen_best", best).
			Float64("gen_worst", worst).
			Msg("Generation complete")

		if gen == cfg.MaxIterations-1 {
			break
		}

		population = nextGeneration(sp, names, evaluated, cfg.PopulationSize, rng)
	}

	return res, nil
}

// nextGeneration breeds a full replacement population from the evaluated one.
func nextGeneration(sp *Space, names []string, evaluated []Outcome, size int, rng *rand.Rand) []Candidate {
	next := make([]Candidate, 0, size)
	for len(next) < size {
		p1 := tournamentSelect(evaluated, rng)
		p2 := tournamentSelect(evaluated, rng)

		c1, c2 := crossover(names, p1.Candidate, p2.Candidate, rng)
		next = append(next, mutate(sp, c1, rng))
		if len(next) < size {
			next = append(next, mutate(sp, c2, rng))
		}
	}
	return next
}

// tournamentSelect samples tournamentSize distinct contestants (without
// replacement within a tournament, with replacement across tournaments) and
// returns the highest-scoring one.
func tournamentSelect(evaluated []Outcome, rng *rand.Rand) *Outcome {
	k := tournamentSize
	if k > len(evaluated) {
		k = len(evaluated)
	}

	best := -1
	for _, idx := range rng.Perm(len(evaluated))[:k] {
		if best < 0 || evaluated[idx].Score > evaluated[best].Score {
			best = idx
		}
	}
	return &evaluated[best]
}

// crossover swaps the tail segments of two parents at a single point on the
// ordered optimizable-name list, producing two new candidates. Parents are
// never mutated.
func crossover(names []string, p1, p2 Candidate, rng *rand.Rand) (Candidate, Candidate) {
	c1 := p1.Clone()
	c2 := p2.Clone()
	if len(names) < 2 {
		return c1, c2
	}

	point := 1 + rng.Intn(len(names)-1)
	for _, name := range names[point:] {
		c1[name], c2[name] = p2[name], p1[name]
	}
	return c1, c2
}

// mutate replaces each optimizable value with a fresh uniform draw with
// probability mutationRate, returning a new candidate.
func mutate(sp *Space, c Candidate, rng *rand.Rand) Candidate {
	mutated := c.Clone()
	for _, d := range sp.Optimizable() {
		if rng.Float64() < mutationRate {
			mutated[d.Name] = sampleValue(d, rng)
		}
	}
	return mutated
}

// generationSpread reports the best and worst scores of one generation.
func generationSpread(evaluated []Outcome) (best, worst float64) {
	best, worst = evaluated[0].Score, evaluated[0].Score
	for _, o := range evaluated[1:] {
		if o.Score > best {
			best = o.Score
		}
		if o.Score < worst {
			worst = o.Score
		}
	}
	return best, worst
}
