/*package eq is a simple package for telling whether two arrays are equal to
one another.*/
package eq

import (
	"math"

	"github.com/phil-mansfield/gotetra/render/geom"
)

func equal[T comparable](x, y []T) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Strings returns true if two []string arrays are the same and false otherwise.
func Strings(x, y []string) bool { return equal(x, y) }

// Ints returns true if two []int arrays are the same and false otherwise.
func Ints(x, y []int) bool { return equal(x, y) }

// Int64s returns true if two []int64 arrays are the same and false otherwise.
func Int64s(x, y []int64) bool { return equal(x, y) }

// Float32s returns true if two []float32 arrays are the same and false
// otherwise. NaN is not equal to anything, including itself.
func Float32s(x, y []float32) bool { return equal(x, y) }

// Float64s returns true if two []float64 arrays are the same and false
// otherwise.
func Float64s(x, y []float64) bool { return equal(x, y) }

// Float32sBits returns true if every element of x has the same bit pattern as
// the corresponding element of y. Unlike Float32s, NaNs can be equal.
func Float32sBits(x, y []float32) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if math.Float32bits(x[i]) != math.Float32bits(y[i]) {
			return false
		}
	}
	return true
}

// Float32sEps returns true if the two []float32 arrays are within eps of one
// another and false otherwise.
func Float32sEps(x, y []float32, eps float32) bool {
	return len(x) == len(y) && Mismatch32(x, y, eps) == -1
}

// Float64sEps returns true if the two []float64 arrays are within eps of one
// another and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i]+eps < y[i] || x[i]-eps > y[i] {
			return false
		}
	}
	return true
}

// Mismatch32 returns the first index where x and y differ by more than eps
// and -1 if there isn't one. Two NaNs match each other. Only the first
// min(len(x), len(y)) elements are checked.
func Mismatch32(x, y []float32, eps float32) int {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	for i := 0; i < n; i++ {
		xNaN, yNaN := x[i] != x[i], y[i] != y[i]
		switch {
		case xNaN && yNaN:
		case xNaN || yNaN:
			return i
		case x[i] == y[i]:
		case x[i]+eps < y[i] || x[i]-eps > y[i]:
			return i
		}
	}
	return -1
}

// VecsEps returns true if every component of the two []geom.Vec arrays is
// within eps of one another and false otherwise.
func VecsEps(x, y []geom.Vec, eps float32) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if Mismatch32(x[i][:], y[i][:], eps) != -1 {
			return false
		}
	}
	return true
}
