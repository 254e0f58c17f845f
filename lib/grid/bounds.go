package grid

import (
	"math"
)

// Bounds is an axis-aligned bounding box. Bounds[0] is the lower corner and
// Bounds[1] is the upper corner.
type Bounds [2][3]float64

// Bounds returns the smallest box that encloses all the vertex positions in
// the grid.
func (g *Grid) Bounds() Bounds {
	b := Bounds{}
	for dim := 0; dim < 3; dim++ {
		b[0][dim], b[1][dim] = math.Inf(+1), math.Inf(-1)
	}

	for _, p := range g.positions {
		for dim := 0; dim < 3; dim++ {
			if p[dim] < b[0][dim] {
				b[0][dim] = p[dim]
			}
			if p[dim] > b[1][dim] {
				b[1][dim] = p[dim]
			}
		}
	}

	return b
}

// Width returns the width of the box along each axis.
func (b Bounds) Width() [3]float64 {
	return [3]float64{b[1][0] - b[0][0], b[1][1] - b[0][1], b[1][2] - b[0][2]}
}

// Contains returns true if p is inside the box, including its faces.
func (b Bounds) Contains(p [3]float64) bool {
	for dim := 0; dim < 3; dim++ {
		if p[dim] < b[0][dim] || p[dim] > b[1][dim] {
			return false
		}
	}
	return true
}
