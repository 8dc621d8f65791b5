// Search strategy contract and shared machinery
package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// searchStrategy drives one exploration loop over the parameter space. All
// implementations respect the run timeout between batches, bound in-flight
// evaluations by the configured worker count, and record every outcome
// (failed ones included) in the run history.
type searchStrategy interface {
	Run(ctx context.Context, sp *Space, cfg Config, eval *Evaluator) (*searchResult, error)
}

// strategies is the method registry. Adding a search method means adding an
// entry here, not extending a dispatch chain.
var strategies = map[Method]searchStrategy{
	MethodGrid:    gridSearch{},
	MethodRandom:  randomSearch{},
	MethodGreedy:  greedyRefinement{},
	MethodGenetic: geneticSearch{},
}

// searchResult is the strategy-level fragment the orchestrator assembles into
// the final result.
type searchResult struct {
	History          []Outcome
	Best             *Outcome // nil when no candidate passed constraints
	Converged        bool
	TriggerIteration int
	TimedOut         bool
}

// record appends a batch of outcomes in generation order and keeps the
// best-so-far tracker current. Batch aggregation is the single-writer step
// that keeps history updates race-free.
func (r *searchResult) record(batch []Outcome) {
	for i := range batch {
		r.History = append(r.History, batch[i])
		o := &r.History[len(r.History)-1]
		if !o.Failed && (r.Best == nil || o.Score > r.Best.Score) {
			r.Best = o
		}
	}
}

// deadline is the cooperative wall-clock ceiling checked between batches. A
// strategy never cancels an in-flight evaluation; it stops issuing new
// candidates once the deadline passes.
type deadline struct {
	at time.Time
}

func newDeadline(timeout time.Duration) deadline {
	return deadline{at: time.Now().Add(timeout)}
}

func (d deadline) exceeded() bool {
	return time.Now().After(d.at)
}

// evaluateBatch evaluates candidates with at most workers calls in flight,
// preserving input order in the returned slice. Candidate generation happens
// before dispatch, so fixed seeds give identical histories regardless of
// completion order.
func evaluateBatch(ctx context.Context, eval *Evaluator, candidates []Candidate, workers int) []Outcome {
	outcomes := make([]Outcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			outcomes[i] = eval.Evaluate(gctx, c)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the outcomes

	return outcomes
}

// evaluateBatchSem is the semaphore-channel variant used by the genetic
// strategy for generation evaluation.
func evaluateBatchSem(ctx context.Context, eval *Evaluator, candidates []Candidate, workers int) []Outcome {
	outcomes := make([]Outcome, len(candidates))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(idx int, cand Candidate) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[idx] = eval.Evaluate(ctx, cand)
		}(i, c)
	}
	wg.Wait()

	return outcomes
}

// logProgress emits throttled batch progress.
func logProgress(method Method, completed, total int) {
	if completed%10 == 0 || completed == total {
		log.Info().
			Str("method", string(method)).
			Int("completed", completed).
			Int("total", total).
			Msgf("Search progress: %.1f%%", float64(completed)/float64(total)*100)
	}
}
