/*package gridio contains vizgrid's loader modules. Each module reads one
simulation-output format and writes the grid it describes through the Writer
interface. Adding support for a new file format requires writing a type which
implements Module and adding a Factory for it to the core module list in
registry.go.
*/
package gridio

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/phil-mansfield/vizgrid/lib/catio"
	"github.com/phil-mansfield/vizgrid/lib/grid"
)

const (
	// DefaultMaxHeaderLines is the number of lines a module will scan while
	// looking for the end of a file's header before giving up.
	DefaultMaxHeaderLines = 10000
)

// Writer receives the vertices of a grid as a module parses them. Modules
// call SetGrid exactly once, before any vertex is written.
type Writer interface {
	SetGrid(dims grid.Index, fields []string) error
	AddVector(name, x, y, z string) error
	SetPosition(idx grid.Index, p [3]float64)
	SetField(field int, idx grid.Index, v float64)
}

// Type assertion
var _ Writer = &grid.Builder{}

// Module is a loader for a single file format.
type Module interface {
	// Name returns the name the module is registered under.
	Name() string
	// Extensions returns the file extensions (e.g. ".msht") that Detect
	// associates with this module.
	Extensions() []string
	// Decode parses a file's contents and writes it to wr. The returned
	// errors are *LoadError values without a Path set.
	Decode(rd io.Reader, wr Writer) error
}

// Options configures a Module.
type Options struct {
	// MaxHeaderLines bounds the number of lines scanned for header
	// information. Non-positive values mean DefaultMaxHeaderLines.
	MaxHeaderLines int
	// Text configures line handling. The zero value means
	// catio.DefaultConfig.
	Text catio.TextConfig
	// Logger receives debug information about each load. nil means nothing
	// is logged.
	Logger *zap.Logger
}

// normalize returns a copy of opt with default values filled in.
func (opt Options) normalize() Options {
	if opt.MaxHeaderLines <= 0 {
		opt.MaxHeaderLines = DefaultMaxHeaderLines
	}
	if opt.Text.MaxLineSize <= 0 {
		opt.Text.MaxLineSize = catio.DefaultConfig.MaxLineSize
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return opt
}

// checkVertexCount returns a DimensionMismatch error if the header's
// dimensions can't be right, before any storage is allocated for them. Every
// vertex takes up columns whitespace-separated values, so it needs more than
// columns bytes. The two extra vertices leave room for a file that is cut off
// partway through its last row, which is a MalformedRow. size is -1 if it's
// unknown.
func checkVertexCount(line int, dims grid.Index, columns int, size int64) error {
	n, ok := dims.CheckedCount()
	if !ok {
		return dimensionError(line, "the header gives the dimensions %d x %d "+
			"x %d, which is more than the %d vertices a grid can hold",
			dims[0], dims[1], dims[2], grid.MaxVertices)
	}
	if size >= 0 && int64(n) > size/int64(columns)+2 {
		return dimensionError(line, "the header gives %d vertices (%d x %d "+
			"x %d), but the file is only %d bytes long", n,
			dims[0], dims[1], dims[2], size)
	}
	return nil
}

// inputSize returns the number of bytes that can be read from rd, or -1 if
// that isn't known.
func inputSize(rd io.Reader) int64 {
	switch r := rd.(type) {
	case interface{ Stat() (os.FileInfo, error) }:
		info, err := r.Stat()
		if err == nil && info.Mode().IsRegular() {
			return info.Size()
		}
	case interface{ Size() int64 }:
		return r.Size()
	case interface{ Len() int }:
		return int64(r.Len())
	}
	return -1
}

// Load reads a grid with the given module. args is the module's argument list
// as supplied by the host application: args[0] is the name of the file. No
// grid is returned if any part of the file can't be read.
func Load(m Module, args []string) (*grid.Grid, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("The module %s needs a file name as its "+
			"first argument, but was given no arguments.", m.Name())
	}
	fileName := args[0]

	f, err := os.Open(fileName)
	if err != nil {
		return nil, &LoadError{Kind: FileNotFound, Path: fileName, Err: err}
	}
	defer f.Close()

	b := grid.NewBuilder()
	if err := m.Decode(f, b); err != nil {
		if lerr, ok := err.(*LoadError); ok && lerr.Path == "" {
			lerr.Path = fileName
		}
		return nil, err
	}

	g, err := b.Finalize()
	if err != nil {
		return nil, fmt.Errorf("Internal error: the module %s left the grid "+
			"for %s incomplete: %w", m.Name(), fileName, err)
	}
	return g, nil
}
