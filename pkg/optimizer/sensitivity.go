package optimizer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// AnalyzeSensitivity estimates each parameter's marginal influence on the
// objective as the absolute Pearson correlation between its observed values
// and the scores across successful evaluations, mapped into [0, 1].
//
// This is a linear-correlation proxy for influence, not a causal measure: a
// parameter driving the score through a non-monotonic relationship can still
// report low sensitivity.
func AnalyzeSensitivity(history []Outcome) map[string]float64 {
	values := make(map[string][]float64)
	scores := make(map[string][]float64)
	for _, o := range history {
		if o.Failed {
			continue
		}
		for name, v := range o.Candidate {
			values[name] = append(values[name], v)
			scores[name] = append(scores[name], o.Score)
		}
	}

	sensitivity := make(map[string]float64, len(values))
	for name, xs := range values {
		sensitivity[name] = 0
		if len(xs) < 2 {
			continue
		}
		r := stat.Correlation(xs, scores[name], nil)
		if math.IsNaN(r) {
			// zero variance in either series
			continue
		}
		sensitivity[name] = math.Abs(r)
	}
	return sensitivity
}
