package gridio

import (
	"io"

	"go.uber.org/zap"

	"github.com/phil-mansfield/vizgrid/lib/catio"
	"github.com/phil-mansfield/vizgrid/lib/grid"
)

const (
	VelocityVector = "Velocity"

	reservoirColumns = 3 + 12
)

// ReservoirFields are the fields of a reservoir grid, in the order they appear
// in each record: cell geometry, rock properties, phase saturations, and
// velocity components.
var ReservoirFields = []string{
	"Depth", "DZ", "DZNet",
	"Permeability", "Porosity", "Pressure",
	"Gas", "Oil", "Water",
	"Vx", "Vy", "Vz",
}

// Reservoir reads the ASCII dumps written by reservoir simulations. The file
// starts with the three integers nx ny nz, followed by nx*ny*nz records of
// fifteen numbers each: a position and then the values of ReservoirFields.
// Records are ordered so that i varies fastest and k varies slowest. The file
// is read as a stream of whitespace-separated numbers, so records don't need
// to be on their own lines.
type Reservoir struct {
	opt Options
}

// NewReservoir creates a Reservoir module.
func NewReservoir(opt Options) *Reservoir {
	return &Reservoir{opt.normalize()}
}

func (r *Reservoir) Name() string { return "Reservoir" }
func (r *Reservoir) Extensions() []string { return []string{".res", ".dat"} }

func (r *Reservoir) Decode(rd io.Reader, wr Writer) error {
	size := inputSize(rd)
	tr := catio.NewTokenReader(rd, r.opt.Text)

	dims, err := readReservoirHeader(tr)
	if err != nil {
		return err
	}
	if err := checkVertexCount(tr.Line(), dims, reservoirColumns, size); err != nil {
		return err
	}
	r.opt.Logger.Debug("Read reservoir header", zap.Ints("dims", dims[:]))

	if err := wr.SetGrid(dims, ReservoirFields); err != nil {
		return err
	}
	if err := wr.AddVector(VelocityVector, "Vx", "Vy", "Vz"); err != nil {
		return err
	}

	tok := make([]string, reservoirColumns)
	rec := make([]float64, reservoirColumns)
	nRecs, read := dims.Count(), 0

	var idx grid.Index
	for idx[2] = 0; idx[2] < dims[2]; idx[2]++ {
		for idx[1] = 0; idx[1] < dims[1]; idx[1]++ {
			for idx[0] = 0; idx[0] < dims[0]; idx[0]++ {
				n := tr.Fill(tok)
				if err := tr.Err(); err != nil {
					return rowError(tr.Line()+1, err,
						"could not read record %d", read+1)
				} else if n == 0 {
					return dimensionError(0, "the header gives %d records "+
						"(%d x %d x %d), but the file ends after %d", nRecs,
						dims[0], dims[1], dims[2], read)
				} else if n < reservoirColumns {
					return rowError(tr.Line(), nil, "record %d has only %d "+
						"of its %d values", read+1, n, reservoirColumns)
				}

				if err := catio.ParseFloats(tok, rec); err != nil {
					return rowError(tr.Line(), err, "record %d", read+1)
				}

				wr.SetPosition(idx, [3]float64{rec[0], rec[1], rec[2]})
				for f := range ReservoirFields {
					wr.SetField(f, idx, rec[3+f])
				}
				read++
			}
		}
	}

	if _, ok := tr.Next(); ok {
		return dimensionError(tr.Line(), "the header gives %d records, but "+
			"there are values after the last one", nRecs)
	}
	if err := tr.Err(); err != nil {
		return rowError(tr.Line()+1, err, "could not read past the last "+
			"record")
	}

	return nil
}

// readReservoirHeader reads the grid dimensions from the start of the file.
func readReservoirHeader(tr *catio.TokenReader) (grid.Index, error) {
	tok := make([]string, 3)
	n := tr.Fill(tok)
	if err := tr.Err(); err != nil {
		return grid.Index{}, &LoadError{Kind: MalformedHeader, Line: 1,
			Msg: "could not read header", Err: err}
	} else if n < 3 {
		return grid.Index{}, headerError(tr.Line(), "expected the three grid "+
			"dimensions nx ny nz, but the file only has %d values", n)
	}

	dims := make([]int, 3)
	if err := catio.ParseInts(tok, dims); err != nil {
		return grid.Index{}, &LoadError{Kind: MalformedHeader,
			Line: tr.Line(), Msg: "grid dimensions", Err: err}
	}
	for dim := range dims {
		if dims[dim] < 1 {
			return grid.Index{}, headerError(tr.Line(), "grid dimensions "+
				"must be positive, but got %d", dims)
		}
	}

	return grid.Index{dims[0], dims[1], dims[2]}, nil
}
