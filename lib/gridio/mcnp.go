package gridio

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/phil-mansfield/vizgrid/lib/catio"
	"github.com/phil-mansfield/vizgrid/lib/grid"
)

const (
	FluxField          = "Flux"
	RelativeErrorField = "Relative Error"

	// meshTallySentinel marks the column header line which comes right before
	// a mesh tally's data rows.
	meshTallySentinel = "Result"
	meshTallyColumns  = 5
)

// MeshTallyFields are the fields of a mesh tally grid.
var MeshTallyFields = []string{FluxField, RelativeErrorField}

// meshTallyMarkers introduce the list of bin boundaries along each axis.
var meshTallyMarkers = [3]string{"X direction:", "Y direction:", "Z direction:"}

// MeshTally reads the column-formatted mesh tally files written by MCNP runs.
// The header lists the bin boundaries along each axis, e.g.
//
//	X direction:   -10.00    0.00   10.00
//
// and the data rows, which come after the "X Y Z Result Rel Error" column
// header, give the position, flux, and relative error of each vertex. There
// is one fewer vertex along each axis than there are boundaries. Rows are
// ordered so that x varies slowest and z varies fastest.
//
// Positions are rotated by 45 degrees in the x-y plane and converted from cm
// to m (see NewMeshTallyTransform).
type MeshTally struct {
	opt Options
}

// NewMeshTally creates a MeshTally module.
func NewMeshTally(opt Options) *MeshTally {
	return &MeshTally{opt.normalize()}
}

func (m *MeshTally) Name() string { return "RealMCNP" }
func (m *MeshTally) Extensions() []string { return []string{".msht", ".meshtal"} }

func (m *MeshTally) Decode(rd io.Reader, wr Writer) error {
	size := inputSize(rd)
	lr := catio.NewLineReader(rd, m.opt.Text)

	dims, err := m.readHeader(lr)
	if err != nil {
		return err
	}
	if err := checkVertexCount(lr.Line(), dims, meshTallyColumns, size); err != nil {
		return err
	}
	m.opt.Logger.Debug("Read mesh tally header",
		zap.Ints("dims", dims[:]), zap.Int("dataStart", lr.Line()+1))

	if err := wr.SetGrid(dims, MeshTallyFields); err != nil {
		return err
	}

	tr := NewMeshTallyTransform()
	row := make([]float64, meshTallyColumns)
	nRows, read := dims.Count(), 0

	var idx grid.Index
	for idx[0] = 0; idx[0] < dims[0]; idx[0]++ {
		for idx[1] = 0; idx[1] < dims[1]; idx[1]++ {
			for idx[2] = 0; idx[2] < dims[2]; idx[2]++ {
				line, ok := lr.Next()
				if !ok {
					if err := lr.Err(); err != nil {
						return rowError(lr.Line()+1, err,
							"could not read data row %d", read+1)
					}
					return dimensionError(0, "the header gives %d vertices "+
						"(%d x %d x %d), but the file ends after %d data rows",
						nRows, dims[0], dims[1], dims[2], read)
				}

				tok := strings.Fields(line)
				if len(tok) == 0 {
					return dimensionError(lr.Line(), "the header gives %d "+
						"vertices, but the data rows end after %d", nRows, read)
				}
				if err := catio.ParseFloats(tok, row); err != nil {
					return rowError(lr.Line(), err, "data row %d", read+1)
				}

				wr.SetPosition(idx, tr.Apply([3]float64{row[0], row[1], row[2]}))
				wr.SetField(0, idx, row[3])
				wr.SetField(1, idx, row[4])
				read++
			}
		}
	}

	// Anything after the tally should be a blank line or the next tally's
	// header. More data rows mean the header undercounted.
	if line, ok := lr.Next(); ok && catio.IsNumeric(line) {
		return dimensionError(lr.Line(), "the header gives %d vertices, but "+
			"there are more data rows", nRows)
	}
	if err := lr.Err(); err != nil {
		return rowError(lr.Line()+1, err, "could not read past the last "+
			"data row")
	}

	return nil
}

// readHeader scans the file until it reaches the "Result" line and returns
// the number of vertices along each axis. One line is read per iteration and
// at most opt.MaxHeaderLines lines are read. A boundary list can continue onto
// following lines as long as those lines contain nothing but numbers.
func (m *MeshTally) readHeader(lr *catio.LineReader) (grid.Index, error) {
	counts, found := [3]int{}, [3]bool{}
	axis := -1 // Axis whose boundary list might continue on the next line.

	for i := 0; i < m.opt.MaxHeaderLines; i++ {
		line, ok := lr.Next()
		if !ok {
			break
		}

		if strings.Contains(line, meshTallySentinel) {
			return headerDims(lr.Line(), counts, found)
		}

		marked := false
		for dim, marker := range meshTallyMarkers {
			j := strings.Index(line, marker)
			if j == -1 {
				continue
			}
			if found[dim] {
				return grid.Index{}, headerError(lr.Line(), "'%s' appears "+
					"more than once in the header", marker)
			}
			counts[dim] = catio.LeadingFloats(line[j+len(marker):])
			found[dim], axis, marked = true, dim, true
		}

		if !marked {
			if axis != -1 && catio.IsNumeric(line) {
				counts[axis] += catio.LeadingFloats(line)
			} else {
				axis = -1
			}
		}
	}

	if err := lr.Err(); err != nil {
		return grid.Index{}, &LoadError{Kind: MalformedHeader,
			Line: lr.Line() + 1, Msg: "could not read header", Err: err}
	}
	return grid.Index{}, headerError(0, "no '%s' line was found in the "+
		"first %d lines of the file", meshTallySentinel, m.opt.MaxHeaderLines)
}

// headerDims converts bin boundary counts into vertex counts.
func headerDims(line int, counts [3]int, found [3]bool) (grid.Index, error) {
	dims := grid.Index{}
	for dim := 0; dim < 3; dim++ {
		if !found[dim] {
			return dims, headerError(line, "the header ended without a '%s' "+
				"line", meshTallyMarkers[dim])
		}
		if counts[dim] < 2 {
			return dims, headerError(line, "'%s' lists %d bin boundaries, "+
				"but at least 2 are needed", meshTallyMarkers[dim], counts[dim])
		}
		dims[dim] = counts[dim] - 1
	}
	return dims, nil
}
