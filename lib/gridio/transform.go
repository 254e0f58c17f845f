package gridio

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// MeshTallyRotation is the angle that mesh tally positions are rotated by
	// in the x-y plane so that the tally lines up with the reactor core.
	MeshTallyRotation = math.Pi / 4
	// MeshTallyScale converts mesh tally positions from cm to m.
	MeshTallyScale = 0.01
)

// Transform is a linear map applied to vertex positions.
type Transform struct {
	m       *mat.Dense
	in, out *mat.VecDense
}

// NewTransform creates a Transform which rotates points by theta around the
// z-axis and then scales every axis by scale.
func NewTransform(theta, scale float64) *Transform {
	sin, cos := math.Sincos(theta)
	m := mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})
	m.Scale(scale, m)

	return &Transform{m, mat.NewVecDense(3, nil), mat.NewVecDense(3, nil)}
}

// NewMeshTallyTransform returns the transform applied to every mesh tally
// position.
func NewMeshTallyTransform() *Transform {
	return NewTransform(MeshTallyRotation, MeshTallyScale)
}

// Apply transforms a single point. A Transform isn't safe to use from
// multiple goroutines at once.
func (t *Transform) Apply(p [3]float64) [3]float64 {
	for dim := 0; dim < 3; dim++ {
		t.in.SetVec(dim, p[dim])
	}
	t.out.MulVec(t.m, t.in)
	return [3]float64{t.out.AtVec(0), t.out.AtVec(1), t.out.AtVec(2)}
}
