package gridio

/* fake_file.go contains functions for writing small, well-formed input files.
They're used to test modules and to give new users something to load. */

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/phil-mansfield/vizgrid/lib/grid"
)

// MeshTallyRow is a single data row of a mesh tally file.
type MeshTallyRow struct {
	X                   [3]float64
	Flux, RelativeError float64
}

// ReservoirRecord is a single record of a reservoir file.
type ReservoirRecord struct {
	X      [3]float64
	Values [12]float64
}

// WriteMeshTally writes a mesh tally file with the given bin boundaries. rows
// must be in file order (x slowest, z fastest) and have one entry per vertex.
func WriteMeshTally(w io.Writer, bounds [3][]float64, rows []MeshTallyRow) error {
	dims := grid.Index{}
	for dim := range bounds {
		dims[dim] = len(bounds[dim]) - 1
	}
	if dims.Count() != len(rows) || dims[0] < 1 || dims[1] < 1 || dims[2] < 1 {
		return fmt.Errorf("Bin boundaries with lengths %d, %d, and %d need "+
			"%d rows, but %d rows were given.", len(bounds[0]),
			len(bounds[1]), len(bounds[2]), dims.Count(), len(rows))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "mcnp   version 6     ld=05/08/13  probid =  fake tally")
	fmt.Fprintln(bw, " vizgrid test tally")
	fmt.Fprintln(bw, " Number of histories used for normalizing tallies =   1000000.00")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, " Mesh Tally Number        14")
	fmt.Fprintln(bw, " neutron   mesh tally.")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, " Tally bin boundaries:")
	for dim, marker := range meshTallyMarkers {
		fmt.Fprintf(bw, "    %s", marker)
		for _, x := range bounds[dim] {
			fmt.Fprintf(bw, " %s", formatFloat(x))
		}
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, "    Energy bin boundaries: 0.00E+00 1.00E+36")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "   X         Y         Z     Result     Rel Error")

	for _, row := range rows {
		fmt.Fprintf(bw, "%s %s %s %s %s\n", formatFloat(row.X[0]),
			formatFloat(row.X[1]), formatFloat(row.X[2]),
			formatFloat(row.Flux), formatFloat(row.RelativeError))
	}

	return bw.Flush()
}

// WriteReservoir writes a reservoir file. records must be in file order (i
// fastest, k slowest) and have one entry per vertex.
func WriteReservoir(w io.Writer, dims grid.Index, records []ReservoirRecord) error {
	if dims.Count() != len(records) {
		return fmt.Errorf("A %d grid needs %d records, but %d records were "+
			"given.", dims, dims.Count(), len(records))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", dims[0], dims[1], dims[2])
	for _, rec := range records {
		for _, x := range rec.X {
			fmt.Fprintf(bw, "%s ", formatFloat(x))
		}
		for i, x := range rec.Values {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(formatFloat(x))
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// formatFloat prints x with just enough digits to be read back exactly.
func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
