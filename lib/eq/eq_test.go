package eq

import (
	"math"
	"testing"

	"github.com/phil-mansfield/gotetra/render/geom"
)

func TestMismatch32(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		x, y []float32
		eps  float32
		idx  int
	}{
		{[]float32{}, []float32{}, 0, -1},
		{[]float32{1, 2, 3}, []float32{1, 2, 3}, 0, -1},
		{[]float32{1, 2, 3}, []float32{1, 2.5, 3}, 0, 1},
		{[]float32{1, 2, 3}, []float32{1, 2.5, 3}, 0.5, -1},
		{[]float32{1, 2, 3}, []float32{1, 2, 3.6}, 0.5, 2},
		{[]float32{nan, 1}, []float32{nan, 1}, 0, -1},
		{[]float32{nan, 1}, []float32{0, 1}, 1, 0},
		{[]float32{1, inf}, []float32{1, inf}, 0.1, -1},
		{[]float32{1, 2}, []float32{1}, 0, -1},
	}

	for i, test := range tests {
		if idx := Mismatch32(test.x, test.y, test.eps); idx != test.idx {
			t.Errorf("%d) Expected Mismatch32(%g, %g, %g) = %d, got %d.",
				i, test.x, test.y, test.eps, test.idx, idx)
		}
	}

	if Float32sEps([]float32{1, 2}, []float32{1}, 0) {
		t.Errorf("Arrays with different lengths were found to be equal.")
	}
}

func TestFloat32sBits(t *testing.T) {
	nan := float32(math.NaN())
	x, y := []float32{1, nan, 0}, []float32{1, nan, 0}
	if Float32s(x, y) {
		t.Errorf("Float32s(%g, %g) = true, but NaN != NaN.", x, y)
	}
	if !Float32sBits(x, y) {
		t.Errorf("Float32sBits(%g, %g) = false.", x, y)
	}

	negZero := float32(math.Copysign(0, -1))
	if Float32sBits([]float32{0}, []float32{negZero}) {
		t.Errorf("Float32sBits found 0 and -0 to be equal.")
	}
}

func TestVecsEps(t *testing.T) {
	x := []geom.Vec{{1, 2, 3}, {4, 5, 6}}
	y := []geom.Vec{{1, 2, 3}, {4, 5.25, 6}}
	if VecsEps(x, y, 0.1) {
		t.Errorf("VecsEps(%g, %g, 0.1) = true.", x, y)
	}
	if !VecsEps(x, y, 0.5) {
		t.Errorf("VecsEps(%g, %g, 0.5) = false.", x, y)
	}
	if VecsEps(x, y[:1], 1) {
		t.Errorf("Arrays with different lengths were found to be equal.")
	}
}
