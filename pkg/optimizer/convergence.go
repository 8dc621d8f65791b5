package optimizer

// ConvergenceMonitor signals early termination when the score spread over the
// trailing window of successful evaluations falls to the threshold or below.
// Failed evaluations never count toward the window.
type ConvergenceMonitor struct {
	Threshold float64
	Window    int
}

// Converged reports whether the trailing window has stalled. It returns false
// until at least Window successful evaluations exist.
func (m ConvergenceMonitor) Converged(history []Outcome) bool {
	if m.Window < 1 {
		return false
	}

	var scores []float64
	for i := len(history) - 1; i >= 0 && len(scores) < m.Window; i-- {
		if !history[i].Failed {
			scores = append(scores, history[i].Score)
		}
	}
	if len(scores) < m.Window {
		return false
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return hi-lo <= m.Threshold
}
