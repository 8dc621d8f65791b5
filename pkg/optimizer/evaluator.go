package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantlab/optimizer/internal/telemetry"
)

// BacktestFunc is the single seam between the engine and the external
// backtest simulator: it turns a full parameter assignment into a mapping of
// raw performance metrics. It must be safe to call concurrently up to the
// configured number of parallel workers.
type BacktestFunc func(ctx context.Context, params map[string]float64) (map[string]float64, error)

// Outcome records one candidate evaluation. Outcomes are appended to the run
// history and never mutated afterward.
type Outcome struct {
	Candidate Candidate          `json:"candidate"`
	Score     float64            `json:"score"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Failed    bool               `json:"failed"`
	Err       string             `json:"error,omitempty"`
}

// Evaluator scores candidates against the backtest collaborator, applying
// constraint checks and the objective transform. A misbehaving collaborator
// call (error or panic) is captured in a failed Outcome with score -Inf and
// never aborts the surrounding search.
type Evaluator struct {
	backtest    BacktestFunc
	defs        []ParameterDefinition
	objective   Objective
	custom      CustomObjective
	constraints []Constraint
}

func newEvaluator(backtest BacktestFunc, defs []ParameterDefinition, cfg Config) *Evaluator {
	return &Evaluator{
		backtest:    backtest,
		defs:        defs,
		objective:   cfg.Objective,
		custom:      cfg.Custom,
		constraints: cfg.Constraints,
	}
}

// Evaluate runs one candidate through the backtest collaborator and converts
// its metrics into a scalar score.
func (e *Evaluator) Evaluate(ctx context.Context, c Candidate) Outcome {
	start := time.Now()
	telemetry.EvaluationsTotal.Inc()
	defer func() {
		telemetry.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	metrics, err := e.invoke(ctx, e.merge(c))
	if err != nil {
		telemetry.EvaluationFailures.Inc()
		log.Warn().Err(err).Msg("Candidate evaluation failed")
		return Outcome{Candidate: c, Score: math.Inf(-1), Failed: true, Err: err.Error()}
	}

	for _, con := range e.constraints {
		if !con.Satisfied(metrics) {
			telemetry.ConstraintViolations.Inc()
			return Outcome{
				Candidate: c,
				Score:     math.Inf(-1),
				Metrics:   metrics,
				Failed:    true,
				Err:       fmt.Sprintf("constraint violated: %s %s %v", con.Metric, con.Op, con.Bound),
			}
		}
	}

	score, err := e.score(metrics)
	if err != nil {
		telemetry.EvaluationFailures.Inc()
		log.Warn().Err(err).Msg("Objective computation failed")
		return Outcome{Candidate: c, Score: math.Inf(-1), Metrics: metrics, Failed: true, Err: err.Error()}
	}

	return Outcome{Candidate: c, Score: score, Metrics: metrics}
}

// merge lays the candidate's values over the full parameter set so the
// collaborator always sees every parameter; non-optimizable parameters keep
// their defaults.
func (e *Evaluator) merge(c Candidate) map[string]float64 {
	params := make(map[string]float64, len(e.defs))
	for _, d := range e.defs {
		params[d.Name] = d.Default
	}
	for k, v := range c {
		params[k] = v
	}
	return params
}

// invoke calls the collaborator, converting a panic into an error so one bad
// candidate cannot take down the whole search.
func (e *Evaluator) invoke(ctx context.Context, params map[string]float64) (metrics map[string]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics = nil
			err = fmt.Errorf("backtest panic: %v", r)
		}
	}()
	return e.backtest(ctx, params)
}

// score applies the objective transform: direct lookup for maximize-type
// objectives, negated lookup for minimize-type ones, and the user function
// for custom objectives.
func (e *Evaluator) score(metrics map[string]float64) (float64, error) {
	if e.objective == ObjectiveCustom {
		return e.scoreCustom(metrics)
	}

	v, ok := metrics[string(e.objective)]
	if !ok {
		return 0, fmt.Errorf("backtest metrics missing objective %q", e.objective)
	}
	if math.IsNaN(v) {
		// a NaN latched as best would win every later max comparison
		return 0, fmt.Errorf("backtest metric %q is NaN", e.objective)
	}
	if minimizeObjectives[e.objective] {
		return -v, nil
	}
	return v, nil
}

// scoreCustom runs the user objective with the same panic containment the
// collaborator call gets; user code runs on evaluation workers.
func (e *Evaluator) scoreCustom(metrics map[string]float64) (s float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = 0
			err = fmt.Errorf("custom objective panic: %v", r)
		}
	}()
	s = e.custom(metrics)
	if math.IsNaN(s) {
		return 0, fmt.Errorf("custom objective returned NaN")
	}
	return s, nil
}
