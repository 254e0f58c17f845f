/*package grid contains the structured grid type that vizgrid's loaders produce.
A grid is a dense 3D lattice of vertices. Every vertex has a position and one
scalar value for each field ("slice") registered with the grid. Grids are
built through a Builder, which hands out an immutable Grid once every vertex
has been written exactly once.
*/
package grid

import (
	"fmt"
	"math"
)

// MaxVertices is the largest number of vertices a Builder will allocate.
const MaxVertices = math.MaxInt32

// Index is a vertex index, (i, j, k). It is also used to store the number of
// vertices along each axis, (nx, ny, nz).
type Index [3]int

// Vector is a vector variable assembled out of three scalar fields, e.g.
// a velocity built from its "Vx", "Vy", and "Vz" components.
type Vector struct {
	Name       string
	Components [3]int
}

// Grid is a finalized structured grid. Its contents are never modified after
// Builder.Finalize returns it.
type Grid struct {
	dims      Index
	names     []string
	vectors   []Vector
	positions [][3]float64
	slices    [][]float64
}

// Count returns the number of vertices in a grid with these dimensions.
func (dims Index) Count() int { return dims[0] * dims[1] * dims[2] }

// CheckedCount is Count for dimensions read from untrusted input. ok is false
// if any dimension is negative or if there would be more than MaxVertices
// vertices.
func (dims Index) CheckedCount() (n int, ok bool) {
	n = 1
	for dim := 0; dim < 3; dim++ {
		if dims[dim] < 0 || (dims[dim] > 0 && n > MaxVertices/dims[dim]) {
			return 0, false
		}
		n *= dims[dim]
	}
	return n, true
}

// Linear converts a vertex index into an offset into a grid's vertex arrays.
// The last axis varies fastest.
func (dims Index) Linear(idx Index) int {
	return (idx[0]*dims[1]+idx[1])*dims[2] + idx[2]
}

// Contains returns true if idx is inside a grid with these dimensions.
func (dims Index) Contains(idx Index) bool {
	for dim := 0; dim < 3; dim++ {
		if idx[dim] < 0 || idx[dim] >= dims[dim] {
			return false
		}
	}
	return true
}

// Unlinear is the inverse of Linear.
func (dims Index) Unlinear(i int) Index {
	k := i % dims[2]
	i /= dims[2]
	j := i % dims[1]
	return Index{i / dims[1], j, k}
}

func (g *Grid) Dims() Index { return g.dims }
func (g *Grid) NumVertices() int { return len(g.positions) }
func (g *Grid) NumFields() int { return len(g.slices) }
func (g *Grid) Names() []string { return append([]string{}, g.names...) }
func (g *Grid) Vectors() []Vector { return append([]Vector{}, g.vectors...) }
func (g *Grid) Positions() [][3]float64 { return g.positions }

// FieldIndex returns the index of the named field and -1 if the grid has no
// such field.
func (g *Grid) FieldIndex(name string) int {
	for i := range g.names {
		if g.names[i] == name {
			return i
		}
	}
	return -1
}

// Position returns the position of the vertex at idx.
func (g *Grid) Position(idx Index) [3]float64 {
	return g.positions[g.dims.Linear(idx)]
}

// Value returns the value of the given field at the vertex idx.
func (g *Grid) Value(field int, idx Index) float64 {
	return g.slices[field][g.dims.Linear(idx)]
}

// Slice returns all the values of a field, in linear vertex order. The
// returned array belongs to the grid and must not be modified.
func (g *Grid) Slice(field int) []float64 { return g.slices[field] }

// Field returns all the values of the named field. An error is returned if
// the field doesn't exist.
func (g *Grid) Field(name string) ([]float64, error) {
	i := g.FieldIndex(name)
	if i == -1 {
		return nil, fmt.Errorf("The grid has no field named '%s'. It only "+
			"has the fields %s.", name, g.names)
	}
	return g.slices[i], nil
}

// Vector returns the value of the named vector variable at the vertex idx.
func (g *Grid) Vector(name string, idx Index) ([3]float64, error) {
	for _, v := range g.vectors {
		if v.Name != name {
			continue
		}
		i := g.dims.Linear(idx)
		return [3]float64{
			g.slices[v.Components[0]][i],
			g.slices[v.Components[1]][i],
			g.slices[v.Components[2]][i],
		}, nil
	}
	return [3]float64{}, fmt.Errorf("The grid has no vector variable '%s'.",
		name)
}

// Builder assembles a Grid. The pattern is that you call SetGrid once the
// dimensions and field names are known, write every vertex with
// SetPosition/SetField, and then call Finalize.
type Builder struct {
	g       *Grid
	visits  []uint8
	written int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// SetGrid allocates storage for a grid with the given dimensions and fields.
// It can only be called once.
func (b *Builder) SetGrid(dims Index, fields []string) error {
	if b.g != nil {
		return fmt.Errorf("The grid's layout has already been set to %d.",
			b.g.dims)
	}
	for dim := 0; dim < 3; dim++ {
		if dims[dim] < 1 {
			return fmt.Errorf("Grid dimensions must all be positive, "+
				"but got %d.", dims)
		}
	}
	if _, ok := dims.CheckedCount(); !ok {
		return fmt.Errorf("A grid with dimensions %d would have more than "+
			"%d vertices.", dims, MaxVertices)
	}
	if name, ok := duplicate(fields); ok {
		return fmt.Errorf("The field name '%s' is used more than once.", name)
	}

	n := dims.Count()
	g := &Grid{
		dims:      dims,
		names:     append([]string{}, fields...),
		positions: make([][3]float64, n),
		slices:    make([][]float64, len(fields)),
	}
	for i := range g.slices {
		g.slices[i] = make([]float64, n)
	}

	b.g, b.visits = g, make([]uint8, n)
	return nil
}

// AddVector registers a vector variable built from three existing fields.
func (b *Builder) AddVector(name string, x, y, z string) error {
	if b.g == nil {
		return fmt.Errorf("AddVector('%s') called before SetGrid().", name)
	}
	v := Vector{Name: name}
	for dim, comp := range []string{x, y, z} {
		v.Components[dim] = b.g.FieldIndex(comp)
		if v.Components[dim] == -1 {
			return fmt.Errorf("The vector '%s' uses the field '%s', but the "+
				"grid only has the fields %s.", name, comp, b.g.names)
		}
	}
	b.g.vectors = append(b.g.vectors, v)
	return nil
}

// SetPosition sets the position of the vertex at idx. Each vertex's position
// is expected to be set exactly once.
func (b *Builder) SetPosition(idx Index, p [3]float64) {
	i := b.g.dims.Linear(idx)
	b.g.positions[i] = p
	if b.visits[i] == 0 {
		b.written++
	}
	if b.visits[i] < 255 {
		b.visits[i]++
	}
}

// SetField sets the value of a field at the vertex idx.
func (b *Builder) SetField(field int, idx Index, v float64) {
	b.g.slices[field][b.g.dims.Linear(idx)] = v
}

// Finalize locks the grid and returns it. An error is returned if any vertex
// was not written or was written more than once.
func (b *Builder) Finalize() (*Grid, error) {
	if b.g == nil {
		return nil, fmt.Errorf("Finalize() called before SetGrid().")
	}
	if b.written != len(b.visits) {
		return nil, fmt.Errorf("Only %d of the grid's %d vertices were "+
			"written.", b.written, len(b.visits))
	}
	for i, n := range b.visits {
		if n != 1 {
			return nil, fmt.Errorf("The vertex %d was written %d times.",
				b.g.dims.Unlinear(i), n)
		}
	}

	g := b.g
	b.g, b.visits, b.written = nil, nil, 0
	return g, nil
}

// duplicate returns a string which shows up multiple times in s and true, or
// an empty string and false if there are no repeats.
func duplicate(s []string) (string, bool) {
	seen := map[string]bool{}
	for _, x := range s {
		if seen[x] {
			return x, true
		}
		seen[x] = true
	}
	return "", false
}
