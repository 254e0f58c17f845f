package grid

/* stats.go contains functions for summarizing the values stored in a grid. */

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the values of one field.
type Stats struct {
	Min, Max, Mean, Std float64
	// NaN counts values which could not be included in the other statistics.
	NaN int
}

// Range returns the smallest and largest values of the given field. This is
// what a color map for the field would be scaled to. NaN values are skipped.
func (g *Grid) Range(field int) (min, max float64) {
	s := g.Stats(field)
	return s.Min, s.Max
}

// Stats computes summary statistics for the given field.
func (g *Grid) Stats(field int) Stats {
	x := finite(g.slices[field])
	s := Stats{NaN: len(g.slices[field]) - len(x)}
	if len(x) == 0 {
		s.Min, s.Max = math.NaN(), math.NaN()
		s.Mean, s.Std = math.NaN(), math.NaN()
		return s
	}

	s.Min, s.Max = floats.Min(x), floats.Max(x)
	if len(x) == 1 {
		s.Mean = x[0]
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(x, nil)
	return s
}

// finite returns x with its NaN values removed. If there aren't any, x is
// returned without being copied.
func finite(x []float64) []float64 {
	if !floats.HasNaN(x) {
		return x
	}
	out := make([]float64, 0, len(x))
	for _, xi := range x {
		if !math.IsNaN(xi) {
			out = append(out, xi)
		}
	}
	return out
}
