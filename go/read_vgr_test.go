package read_vgr

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/vizgrid/lib/compress"
	"github.com/phil-mansfield/vizgrid/lib/grid"
)

// writeTestFile writes a 3 x 2 x 1 grid with a pressure field and a velocity
// vector. Every value is an integer so that it survives float32 rounding.
func writeTestFile(t *testing.T) (string, *grid.Grid) {
	t.Helper()
	dims := grid.Index{3, 2, 1}
	fields := []string{"P", "Vx", "Vy", "Vz"}

	b := grid.NewBuilder()
	require.NoError(t, b.SetGrid(dims, fields))
	require.NoError(t, b.AddVector("Velocity", "Vx", "Vy", "Vz"))
	for i := 0; i < dims.Count(); i++ {
		idx := dims.Unlinear(i)
		b.SetPosition(idx, [3]float64{float64(idx[0]), float64(idx[1]), 7})
		for f := range fields {
			b.SetField(f, idx, float64(10*f+i))
		}
	}
	g, err := b.Finalize()
	require.NoError(t, err)

	fileName := filepath.Join(t.TempDir(), "grid.vgr")
	err = compress.WriteGrid(fileName, "Reservoir", g,
		compress.NewZStd(compress.DefaultZStdLevel), binary.LittleEndian)
	require.NoError(t, err)
	return fileName, g
}

func TestReadHeader(t *testing.T) {
	fileName, _ := writeTestFile(t)

	hd, err := ReadHeader(fileName)
	require.NoError(t, err)
	assert.Equal(t, &Header{
		Module:     "Reservoir",
		Dims:       [3]int{3, 2, 1},
		N:          6,
		Names:      []string{"P", "Vx", "Vy", "Vz"},
		Vectors:    []string{"Velocity"},
		Components: [][3]string{{"Vx", "Vy", "Vz"}},
	}, hd)

	_, err = ReadHeader(filepath.Join(t.TempDir(), "missing.vgr"))
	assert.Error(t, err)
}

func TestReadVar(t *testing.T) {
	fileName, g := writeTestFile(t)
	n := g.NumVertices()

	nWorkers := 2
	InitWorkers(nWorkers)

	varNames := []string{"P", "Vy", PositionVar, "Velocity", "P"}
	varBufs := []interface{}{
		make([]float32, n), make([]float64, n), make([][3]float32, n),
		make([][3]float64, n), make([]float64, n),
	}

	wg := sync.WaitGroup{}
	errs := make([]error, len(varNames))
	for i := range varNames {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ReadVar(fileName, varNames[i], i%nWorkers, varBufs[i])
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i], varNames[i])
	}

	p, _ := g.Field("P")
	vy, _ := g.Field("Vy")
	for i := 0; i < n; i++ {
		assert.Equal(t, float32(p[i]), varBufs[0].([]float32)[i])
		assert.Equal(t, vy[i], varBufs[1].([]float64)[i])
		assert.Equal(t, p[i], varBufs[4].([]float64)[i])

		pos := g.Positions()[i]
		assert.Equal(t, [3]float32{float32(pos[0]), float32(pos[1]),
			float32(pos[2])}, varBufs[2].([][3]float32)[i])

		v, err := g.Vector("Velocity", g.Dims().Unlinear(i))
		require.NoError(t, err)
		assert.Equal(t, v, varBufs[3].([][3]float64)[i])
	}
}

func TestReadVarFailure(t *testing.T) {
	fileName, g := writeTestFile(t)
	n := g.NumVertices()
	InitWorkers(1)

	tests := []struct {
		name     string
		workerID int
		buf      interface{}
	}{
		{"P", 1, make([]float32, n)},
		{"P", -2, make([]float32, n)},
		{"P", 0, make([]float32, n+1)},
		{"P", 0, make([][3]float32, n)},
		{"P", 0, make([]int, n)},
		{"Velocity", 0, make([]float32, n)},
		{PositionVar, 0, make([]float64, n)},
		{"Temperature", -1, make([]float32, n)},
	}

	for i, test := range tests {
		err := ReadVar(fileName, test.name, test.workerID, test.buf)
		assert.Error(t, err, fmt.Sprintf("test %d", i))
	}

	// Failures release their workers.
	assert.NoError(t, ReadVar(fileName, "P", 0, make([]float32, n)))
}
