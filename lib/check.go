package lib

/* check.go contains the core functions of vizgrid's run modes. */

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/phil-mansfield/gotetra/render/geom"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/phil-mansfield/vizgrid/lib/compress"
	"github.com/phil-mansfield/vizgrid/lib/eq"
	"github.com/phil-mansfield/vizgrid/lib/grid"
	"github.com/phil-mansfield/vizgrid/lib/gridio"
)

// NewModule creates the module that reads the given file. If args doesn't
// name a module, it's picked from the file's extension.
func (args *Args) NewModule(
	fileName string, logger *zap.Logger,
) (gridio.Module, error) {
	name := args.Module
	if name == "" {
		var err error
		if name, err = gridio.Default.Detect(fileName); err != nil {
			return nil, err
		}
	}
	return gridio.Default.Create(name, gridio.Options{
		MaxHeaderLines: args.MaxHeaderLines,
		Logger:         logger.With(zap.String("module", name)),
	})
}

// LoadFile loads a grid and returns it along with the name of the module
// that read it. Cache files are read directly.
func LoadFile(
	args *Args, fileName string, logger *zap.Logger,
) (*grid.Grid, string, error) {
	if isCache(fileName) {
		return compress.ReadGrid(fileName)
	}

	m, err := args.NewModule(fileName, logger)
	if err != nil {
		return nil, "", err
	}
	g, err := gridio.Load(m, []string{fileName})
	if err != nil {
		return nil, "", err
	}
	return g, m.Name(), nil
}

func isCache(fileName string) bool {
	return strings.EqualFold(filepath.Ext(fileName), CacheExtension)
}

// Run runs the given mode over every file in args. Info summaries are
// written to out as a YAML stream.
func Run(mode RunMode, args *Args, logger *zap.Logger, out io.Writer) error {
	switch mode {
	case CheckMode:
		return Check(args, logger)
	case ConvertMode:
		return Convert(args, logger)
	case ConfirmMode:
		return Confirm(args, logger)
	case InfoMode:
		summaries, err := Info(args, logger)
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		for _, s := range summaries {
			if s == nil {
				continue
			}
			if encErr := enc.Encode(s); encErr != nil {
				return encErr
			}
		}
		if encErr := enc.Close(); encErr != nil {
			return encErr
		}
		return err
	}
	return fmt.Errorf("Internal error: unrecognized run mode %d.", mode)
}

// batch calls f on every file in args in parallel. What happens to failed
// files depends on args.Strictness.
func batch(
	mode RunMode, args *Args, logger *zap.Logger, f func(i int) error,
) error {
	errs := ForEach(len(args.Files), args.Threads, f)

	failed := 0
	for i, err := range errs {
		if err == nil {
			logger.Debug("file processed", zap.String("mode", mode.String()),
				zap.String("file", args.Files[i].Name))
			continue
		}
		if args.Strictness == CrashOnError {
			return err
		}
		failed++
		logger.Warn("file could not be processed",
			zap.String("mode", mode.String()),
			zap.String("file", args.Files[i].Name), zap.Error(err))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed %s.", failed,
			len(args.Files), mode)
	}
	return nil
}

// Check loads every file and reports the ones that can't be loaded.
func Check(args *Args, logger *zap.Logger) error {
	return batch(CheckMode, args, logger, func(i int) error {
		_, _, err := LoadFile(args, args.Files[i].Name, logger)
		return err
	})
}

// Convert loads every file and writes it to its cache file.
func Convert(args *Args, logger *zap.Logger) error {
	order := SystemByteOrder()
	return batch(ConvertMode, args, logger, func(i int) error {
		name, path := args.Files[i].Name, args.CachePaths[i]
		if filepath.Clean(name) == filepath.Clean(path) {
			return fmt.Errorf("%s would be converted into itself.", name)
		}

		g, module, err := LoadFile(args, name, logger)
		if err != nil {
			return err
		}
		method, err := args.NewMethod()
		if err != nil {
			return err
		}
		if err := compress.WriteGrid(path, module, g, method, order); err != nil {
			return fmt.Errorf("Could not write %s to %s: %w", name, path, err)
		}

		logger.Info("wrote cache", zap.String("file", name),
			zap.String("cache", path), zap.String("method", args.Method))
		return nil
	})
}

// Confirm loads every file and checks that its cache file stores the same
// grid. Values must match the float32 rounding of the loaded values exactly,
// after quantization if the method is lossy.
func Confirm(args *Args, logger *zap.Logger) error {
	return batch(ConfirmMode, args, logger, func(i int) error {
		name, path := args.Files[i].Name, args.CachePaths[i]
		g, module, err := LoadFile(args, name, logger)
		if err != nil {
			return err
		}
		return confirmCache(args, g, module, path)
	})
}

func confirmCache(args *Args, g *grid.Grid, module, path string) error {
	rd, err := compress.NewReader(path, compress.NewBuffer(), nil)
	if err != nil {
		return err
	}
	defer rd.Close()

	dims := g.Dims()
	switch {
	case rd.Module != module:
		return fmt.Errorf("%s was written by the module %s, not %s.",
			path, rd.Module, module)
	case rd.Dims != [3]int64{int64(dims[0]), int64(dims[1]), int64(dims[2])}:
		return fmt.Errorf("%s stores a grid with dimensions %d, but the "+
			"loaded grid has dimensions %d.", path, rd.Dims, dims)
	case !eq.Strings(rd.Names, g.Names()):
		return fmt.Errorf("%s stores the fields %s, but the loaded grid "+
			"has the fields %s.", path, rd.Names, g.Names())
	}

	pos, err := rd.ReadPositions()
	if err != nil {
		return err
	}
	exp := make([]float32, 3*len(pos))
	for i, p := range g.Positions() {
		for dim := 0; dim < 3; dim++ {
			exp[i+dim*len(pos)] = float32(p[dim])
		}
	}
	if err := args.roundTrip(exp); err != nil {
		return err
	}
	expVecs := make([]geom.Vec, len(pos))
	for i := range expVecs {
		for dim := 0; dim < 3; dim++ {
			expVecs[i][dim] = exp[i+dim*len(pos)]
		}
	}
	if !eq.VecsEps(pos, expVecs, 0) {
		return fmt.Errorf("The vertex positions in %s don't match the "+
			"loaded grid.", path)
	}

	for f, field := range g.Names() {
		x, err := rd.ReadField(field)
		if err != nil {
			return err
		}
		exp := make([]float32, len(x))
		for j, v := range g.Slice(f) {
			exp[j] = float32(v)
		}
		if err := args.roundTrip(exp); err != nil {
			return err
		}
		if j := eq.Mismatch32(x, exp, 0); j != -1 {
			return fmt.Errorf("The field %s in %s doesn't match the loaded "+
				"grid at vertex %d: %g was stored, but %g was expected.",
				field, path, dims.Unlinear(j), x[j], exp[j])
		}
	}

	return nil
}

// roundTrip replaces x with the values that args' method would read back
// after writing it.
func (args *Args) roundTrip(x []float32) error {
	if args.Method != "delta" {
		return nil
	}
	q := make([]int64, len(x))
	if err := compress.Quantize(x, args.Accuracy, q); err != nil {
		return err
	}
	compress.Dequantize(q, args.Accuracy, x)
	return nil
}
