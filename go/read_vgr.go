/*package read_vgr provides several functions for reading .vgr files.*/
package read_vgr

import (
	"fmt"
	"sync"

	"github.com/phil-mansfield/vizgrid/lib/compress"
)

// PositionVar is the name that ReadVar uses for the vertex positions.
const PositionVar = "Position"

var (
	workers []*worker
	mutexes []*sync.Mutex
)

// Header contains header information about a given .vgr file.
type Header struct {
	// Module is the name of the module which loaded the original file.
	Module string
	// Dims gives the number of vertices along each axis and N gives the
	// total number of vertices.
	Dims [3]int
	N    int
	// Names gives the names of all the scalar fields stored in the file.
	Names []string
	// Vectors gives the names of the vector variables in the file, and
	// Components gives the names of the fields that make them up.
	Vectors    []string
	Components [][3]string
}

// worker contains various buffers which prevent excess heap allocations
// when reading the file.
type worker struct {
	buf    *compress.Buffer
	midBuf []byte
}

// newWorker creates a blank worker object that can be used for reading.
func newWorker() *worker {
	return &worker{buf: compress.NewBuffer()}
}

func getWorker(workerID int) (*worker, error) {
	if workerID == -1 {
		return newWorker(), nil
	} else if workerID < -1 || workerID >= len(workers) {
		return nil, fmt.Errorf("Cannot use worker %d for nWorkers = %d",
			workerID, len(workers))
	}
	mutexes[workerID].Lock()
	return workers[workerID], nil
}

func finishWorker(workerID int) {
	if workerID != -1 {
		mutexes[workerID].Unlock()
	}
}

// ReadHeader returns the header of a given file.
func ReadHeader(fileName string) (*Header, error) {
	rd, err := compress.NewReader(fileName, compress.NewBuffer(), nil)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	hd := &Header{
		Module: rd.Module,
		Dims:   [3]int{int(rd.Dims[0]), int(rd.Dims[1]), int(rd.Dims[2])},
		N:      int(rd.N),
		Names:  append([]string{}, rd.Names...),
	}
	for _, v := range rd.Vectors {
		hd.Vectors = append(hd.Vectors, v.Name)
		hd.Components = append(hd.Components, [3]string{
			rd.Names[v.Components[0]], rd.Names[v.Components[1]],
			rd.Names[v.Components[2]],
		})
	}
	return hd, nil
}

// ReadVar reads a variable with a given name from a given file. If you
// want to use one of the pre-allocated workers, you should give the integer
// ID of that workers (i.e. in the range [0, nWorkers)). ReadVar uses
// mutexes to make sure that same worker isn't being used simultaneously,
// so feel free to throw a zillion threads at the same worker. If you
// don't care about heap space, just set workerID to -1. The last argument
// is a buffer with length Header.N where the variable will be written to.
//
// Scalar fields can be read into []float32 or []float64 buffers. Vector
// variables and PositionVar can be read into [][3]float32 or [][3]float64
// buffers.
func ReadVar(fileName, name string, workerID int, buf interface{}) error {
	w, err := getWorker(workerID)
	if err != nil {
		return err
	}
	defer finishWorker(workerID)

	rd, err := compress.NewReader(fileName, w.buf, w.midBuf)
	if err != nil {
		return err
	}
	defer func() {
		w.midBuf = rd.ReuseMidBuf()
		_ = rd.Close()
	}()

	if n := bufLen(buf); n != int(rd.N) {
		return fmt.Errorf("%s has %d vertices, but the buffer for '%s' "+
			"has length %d.", fileName, rd.N, name, n)
	}

	if name == PositionVar {
		if !isVectorBuf(buf) {
			return fmt.Errorf("Positions must be read into a [][3]float32 "+
				"or [][3]float64 buffer, not %T.", buf)
		}
		pos, err := rd.ReadPositions()
		if err != nil {
			return err
		}
		for dim := 0; dim < 3; dim++ {
			for i := range pos {
				setComponent(buf, dim, i, pos[i][dim])
			}
		}
		return nil
	}

	for _, v := range rd.Vectors {
		if v.Name != name {
			continue
		}
		if !isVectorBuf(buf) {
			return fmt.Errorf("'%s' is a vector, so it must be read into a "+
				"[][3]float32 or [][3]float64 buffer, not %T.", name, buf)
		}
		for dim, c := range v.Components {
			x, err := rd.ReadField(rd.Names[c])
			if err != nil {
				return err
			}
			for i := range x {
				setComponent(buf, dim, i, x[i])
			}
		}
		return nil
	}

	x, err := rd.ReadField(name)
	if err != nil {
		return err
	}
	switch out := buf.(type) {
	case []float32:
		copy(out, x)
	case []float64:
		for i := range x {
			out[i] = float64(x[i])
		}
	default:
		return fmt.Errorf("'%s' is a scalar field, so it must be read into "+
			"a []float32 or []float64 buffer, not %T.", name, buf)
	}
	return nil
}

func bufLen(buf interface{}) int {
	switch x := buf.(type) {
	case []float32:
		return len(x)
	case []float64:
		return len(x)
	case [][3]float32:
		return len(x)
	case [][3]float64:
		return len(x)
	}
	return -1
}

func isVectorBuf(buf interface{}) bool {
	switch buf.(type) {
	case [][3]float32, [][3]float64:
		return true
	}
	return false
}

// setComponent sets buf[i][dim] = x. buf must be a vector buffer.
func setComponent(buf interface{}, dim, i int, x float32) {
	switch out := buf.(type) {
	case [][3]float32:
		out[i][dim] = x
	case [][3]float64:
		out[i][dim] = float64(x)
	}
}

// InitWorkers allocates nWorkers reusable workers. It isn't safe to call
// while other threads are reading.
func InitWorkers(nWorkers int) {
	workers = make([]*worker, nWorkers)
	mutexes = make([]*sync.Mutex, nWorkers)

	for i := 0; i < nWorkers; i++ {
		workers[i] = newWorker()
		mutexes[i] = &sync.Mutex{}
	}
}
