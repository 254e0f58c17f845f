package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill writes every vertex of a grid in the order that the last axis varies
// fastest. Each field's value is its vertex's linear index plus 1000*field.
func fill(b *Builder, dims Index, nFields int) {
	var idx Index
	for idx[0] = 0; idx[0] < dims[0]; idx[0]++ {
		for idx[1] = 0; idx[1] < dims[1]; idx[1]++ {
			for idx[2] = 0; idx[2] < dims[2]; idx[2]++ {
				b.SetPosition(idx, [3]float64{
					float64(idx[0]), float64(idx[1]), float64(idx[2]),
				})
				for f := 0; f < nFields; f++ {
					b.SetField(f, idx, float64(dims.Linear(idx)+1000*f))
				}
			}
		}
	}
}

func TestIndex(t *testing.T) {
	dims := Index{3, 4, 5}
	assert.Equal(t, 60, dims.Count())

	for i := 0; i < dims.Count(); i++ {
		idx := dims.Unlinear(i)
		if !dims.Contains(idx) {
			t.Errorf("Unlinear(%d) = %d, which is outside of %d.", i, idx, dims)
		}
		if j := dims.Linear(idx); j != i {
			t.Errorf("Linear(Unlinear(%d)) = %d.", i, j)
		}
	}

	assert.Equal(t, 1*4*5+2*5+3, dims.Linear(Index{1, 2, 3}))
	assert.False(t, dims.Contains(Index{3, 0, 0}))
	assert.False(t, dims.Contains(Index{0, -1, 0}))
	assert.False(t, dims.Contains(Index{0, 0, 5}))

	n, ok := dims.CheckedCount()
	assert.True(t, ok)
	assert.Equal(t, 60, n)
	for _, big := range []Index{{3000000, 3000000, 3000000},
		{MaxVertices, 2, 1}, {1 << 20, 1 << 20, 1 << 20}, {-1, 2, 2}} {
		_, ok := big.CheckedCount()
		assert.False(t, ok, "%d", big)
	}
}

func TestBuilder(t *testing.T) {
	dims := Index{2, 3, 4}
	fields := []string{"Flux", "Relative Error"}

	b := NewBuilder()
	require.NoError(t, b.SetGrid(dims, fields))
	fill(b, dims, len(fields))
	g, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, dims, g.Dims())
	assert.Equal(t, 24, g.NumVertices())
	assert.Equal(t, 2, g.NumFields())
	assert.Equal(t, fields, g.Names())
	assert.Equal(t, 1, g.FieldIndex("Relative Error"))
	assert.Equal(t, -1, g.FieldIndex("Porosity"))

	idx := Index{1, 2, 3}
	assert.Equal(t, [3]float64{1, 2, 3}, g.Position(idx))
	assert.Equal(t, 23.0, g.Value(0, idx))
	assert.Equal(t, 1023.0, g.Value(1, idx))
	assert.Equal(t, g.Slice(1)[23], g.Value(1, idx))

	flux, err := g.Field("Flux")
	require.NoError(t, err)
	assert.Len(t, flux, 24)
	_, err = g.Field("Porosity")
	assert.Error(t, err)

	// Names are copied, so callers can't rename fields.
	names := g.Names()
	names[0] = "x"
	assert.Equal(t, "Flux", g.Names()[0])
}

func TestBuilderFailure(t *testing.T) {
	dims := Index{2, 2, 2}

	b := NewBuilder()
	_, err := b.Finalize()
	assert.Error(t, err, "Finalize before SetGrid")
	assert.Error(t, b.AddVector("V", "a", "b", "c"), "AddVector before SetGrid")

	assert.Error(t, b.SetGrid(Index{2, 0, 2}, []string{"a"}))
	assert.Error(t, b.SetGrid(Index{3000000, 3000000, 3000000}, []string{"a"}))
	assert.Error(t, b.SetGrid(dims, []string{"a", "b", "a"}))
	require.NoError(t, b.SetGrid(dims, []string{"a"}))
	assert.Error(t, b.SetGrid(dims, []string{"a"}), "second SetGrid")

	// Missing vertex.
	b.SetPosition(Index{0, 0, 0}, [3]float64{})
	_, err = b.Finalize()
	assert.Error(t, err)

	// Vertex written twice.
	b = NewBuilder()
	require.NoError(t, b.SetGrid(dims, []string{"a"}))
	fill(b, dims, 1)
	b.SetPosition(Index{1, 0, 1}, [3]float64{})
	_, err = b.Finalize()
	assert.Error(t, err)
}

func TestBuilderReuse(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetGrid(Index{1, 1, 2}, []string{"a"}))
	fill(b, Index{1, 1, 2}, 1)
	g1, err := b.Finalize()
	require.NoError(t, err)

	require.NoError(t, b.SetGrid(Index{2, 1, 1}, []string{"b", "c"}))
	fill(b, Index{2, 1, 1}, 2)
	g2, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, g1.Names())
	assert.Equal(t, []string{"b", "c"}, g2.Names())
}

func TestVector(t *testing.T) {
	dims := Index{2, 1, 1}
	b := NewBuilder()
	require.NoError(t, b.SetGrid(dims, []string{"Vz", "P", "Vx", "Vy"}))
	require.NoError(t, b.AddVector("Velocity", "Vx", "Vy", "Vz"))
	assert.Error(t, b.AddVector("Bad", "Vx", "Vy", "Vw"))
	fill(b, dims, 4)

	g, err := b.Finalize()
	require.NoError(t, err)

	require.Equal(t, []Vector{{"Velocity", [3]int{2, 3, 0}}}, g.Vectors())
	v, err := g.Vector("Velocity", Index{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, [3]float64{2001, 3001, 1}, v)

	_, err = g.Vector("Bad", Index{0, 0, 0})
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		x   []float64
		exp Stats
	}{
		{[]float64{1, 2, 3, 4}, Stats{1, 4, 2.5, math.Sqrt(5.0 / 3), 0}},
		{[]float64{nan, 2, nan, 4}, Stats{2, 4, 3, math.Sqrt2, 2}},
		{[]float64{-7}, Stats{-7, -7, -7, 0, 0}},
	}

	for i, test := range tests {
		g := &Grid{slices: [][]float64{test.x}}
		s := g.Stats(0)
		assert.Equal(t, test.exp.NaN, s.NaN, "%d", i)
		assert.Equal(t, test.exp.Min, s.Min, "%d", i)
		assert.Equal(t, test.exp.Max, s.Max, "%d", i)
		assert.InDelta(t, test.exp.Mean, s.Mean, 1e-12, "%d", i)
		assert.InDelta(t, test.exp.Std, s.Std, 1e-12, "%d", i)

		min, max := g.Range(0)
		assert.Equal(t, test.exp.Min, min, "%d", i)
		assert.Equal(t, test.exp.Max, max, "%d", i)
	}

	g := &Grid{slices: [][]float64{{nan, nan}}}
	s := g.Stats(0)
	assert.Equal(t, 2, s.NaN)
	assert.True(t, math.IsNaN(s.Min) && math.IsNaN(s.Mean))
}

func TestBounds(t *testing.T) {
	g := &Grid{positions: [][3]float64{
		{1, -2, 3}, {0.5, 4, 3}, {2, 0, -1},
	}}

	b := g.Bounds()
	assert.Equal(t, Bounds{{0.5, -2, -1}, {2, 4, 3}}, b)
	assert.Equal(t, [3]float64{1.5, 6, 4}, b.Width())
	assert.True(t, b.Contains([3]float64{0.5, 0, 3}))
	assert.False(t, b.Contains([3]float64{0.4, 0, 0}))
}
