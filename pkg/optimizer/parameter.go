// Parameter space handling for strategy optimization
package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ============================================================================
// PARAMETER DEFINITIONS
// ============================================================================

// ParameterKind defines the numeric type of a tunable parameter
type ParameterKind string

const (
	KindInteger ParameterKind = "integer"
	KindReal    ParameterKind = "real"
)

// ParameterDefinition describes one tunable strategy parameter. Definitions
// are treated as immutable once handed to the engine.
type ParameterDefinition struct {
	Name        string        `json:"name"`
	Kind        ParameterKind `json:"kind"`
	Default     float64       `json:"default"`
	Min         float64       `json:"min"`
	Max         float64       `json:"max"`
	Optimizable bool          `json:"optimizable"`
}

// Validate checks the internal consistency of a single definition.
func (d ParameterDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: parameter with empty name", ErrInvalidParameterSpace)
	}
	if d.Kind != KindInteger && d.Kind != KindReal {
		return fmt.Errorf("%w: parameter %q has unknown kind %q", ErrInvalidParameterSpace, d.Name, d.Kind)
	}
	if d.Default < d.Min || d.Default > d.Max {
		return fmt.Errorf("%w: parameter %q default %v outside [%v, %v]", ErrInvalidParameterSpace, d.Name, d.Default, d.Min, d.Max)
	}
	if d.Optimizable && d.Min >= d.Max {
		return fmt.Errorf("%w: optimizable parameter %q has degenerate bounds [%v, %v]", ErrInvalidParameterSpace, d.Name, d.Min, d.Max)
	}
	if d.Optimizable && d.Kind == KindInteger {
		if lo, hi := integerBounds(d); lo > hi {
			return fmt.Errorf("%w: integer parameter %q has no integral value in [%v, %v]", ErrInvalidParameterSpace, d.Name, d.Min, d.Max)
		}
	}
	return nil
}

// integerBounds is the integral sub-range of an integer parameter's bounds.
// Non-integral bounds tighten inward so sampled values never escape
// [Min, Max].
func integerBounds(d ParameterDefinition) (lo, hi float64) {
	return math.Ceil(d.Min), math.Floor(d.Max)
}

// Candidate is one concrete assignment of values to a strategy's parameters.
// A candidate is never mutated after creation; genetic operators and the
// refinement sampler always build new ones.
type Candidate map[string]float64

// Clone creates a copy of the candidate
func (c Candidate) Clone() Candidate {
	clone := make(Candidate, len(c))
	for k, v := range c {
		clone[k] = v
	}
	return clone
}

// ============================================================================
// PARAMETER SPACE
// ============================================================================

// Space derives enumerable and sampleable candidate sets from the subset of
// parameter definitions marked optimizable.
type Space struct {
	defs        []ParameterDefinition
	optimizable []ParameterDefinition
}

// NewSpace validates the definitions and returns a Space over them. It fails
// with ErrInvalidParameterSpace when no parameter is optimizable or when an
// optimizable parameter has min >= max.
func NewSpace(defs []ParameterDefinition) (*Space, error) {
	s := &Space{defs: defs}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if d.Optimizable {
			s.optimizable = append(s.optimizable, d)
		}
	}
	if len(s.optimizable) == 0 {
		return nil, fmt.Errorf("%w: no optimizable parameters", ErrInvalidParameterSpace)
	}
	return s, nil
}

// Optimizable returns the optimizable definitions in declaration order.
func (s *Space) Optimizable() []ParameterDefinition {
	return s.optimizable
}

// Names returns the optimizable parameter names in declaration order. The
// ordering is load-bearing for single-point crossover and grid enumeration.
func (s *Space) Names() []string {
	names := make([]string, len(s.optimizable))
	for i, d := range s.optimizable {
		names[i] = d.Name
	}
	return names
}

// base returns a candidate holding every non-optimizable parameter at its
// default value.
func (s *Space) base() Candidate {
	c := make(Candidate)
	for _, d := range s.defs {
		if !d.Optimizable {
			c[d.Name] = d.Default
		}
	}
	return c
}

// BuildGrid enumerates the Cartesian product of evenly spaced axes, one axis
// per optimizable parameter, in definition order. When the full grid exceeds
// maxSize, a uniform random subsample of exactly maxSize candidates is drawn
// from rng instead of truncating the head, so no region of the space is
// systematically dropped.
func (s *Space) BuildGrid(pointsPerDim, maxSize int, rng *rand.Rand) []Candidate {
	grid := []Candidate{s.base()}
	for _, d := range s.optimizable {
		axis := gridAxis(d, pointsPerDim)
		next := make([]Candidate, 0, len(grid)*len(axis))
		for _, c := range grid {
			for _, v := range axis {
				nc := c.Clone()
				nc[d.Name] = v
				next = append(next, nc)
			}
		}
		grid = next
	}

	if maxSize > 0 && len(grid) > maxSize {
		idx := rng.Perm(len(grid))[:maxSize]
		sort.Ints(idx)
		sampled := make([]Candidate, maxSize)
		for i, j := range idx {
			sampled[i] = grid[j]
		}
		grid = sampled
	}

	return grid
}

// gridAxis produces the evenly spaced values for one parameter. Integer axes
// are rounded and deduplicated, so a narrow integer range yields fewer than
// pointsPerDim points.
func gridAxis(d ParameterDefinition, pointsPerDim int) []float64 {
	if pointsPerDim < 2 {
		pointsPerDim = 2
	}
	span := floats.Span(make([]float64, pointsPerDim), d.Min, d.Max)
	if d.Kind != KindInteger {
		return span
	}

	lo, hi := integerBounds(d)
	axis := make([]float64, 0, pointsPerDim)
	for _, v := range span {
		r := math.Round(v)
		if r < lo {
			r = lo
		}
		if r > hi {
			r = hi
		}
		if len(axis) == 0 || axis[len(axis)-1] != r {
			axis = append(axis, r)
		}
	}
	return axis
}

// Sample draws one independent uniform candidate: inclusive integer draws for
// integer parameters, uniform floats for real ones. Non-optimizable
// parameters receive their defaults.
func (s *Space) Sample(rng *rand.Rand) Candidate {
	c := s.base()
	for _, d := range s.optimizable {
		c[d.Name] = sampleValue(d, rng)
	}
	return c
}

// sampleValue draws a single uniform value within a parameter's bounds.
func sampleValue(d ParameterDefinition, rng *rand.Rand) float64 {
	if d.Kind == KindInteger {
		flo, fhi := integerBounds(d)
		lo, hi := int(flo), int(fhi)
		return float64(lo + rng.Intn(hi-lo+1))
	}
	return d.Min + rng.Float64()*(d.Max-d.Min)
}
