package lib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/phil-mansfield/vizgrid/lib/compress"
	"github.com/phil-mansfield/vizgrid/lib/format"
	"github.com/phil-mansfield/vizgrid/lib/gridio"
)

var testBounds = [3][]float64{{0, 10, 20}, {0, 10}, {-5, 5, 15}}

// writeTally writes a 2 x 1 x 2 mesh tally whose fluxes start at offset.
func writeTally(t *testing.T, fileName string, offset float64) {
	t.Helper()
	rows := []gridio.MeshTallyRow{}
	for i := 0; i < 2; i++ {
		for k := 0; k < 2; k++ {
			x := [3]float64{5 + 10*float64(i), 5, 10 * float64(k)}
			n := float64(len(rows))
			rows = append(rows, gridio.MeshTallyRow{
				X: x, Flux: offset + n, RelativeError: 0.01 * (n + 1),
			})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, gridio.WriteMeshTally(buf, testBounds, rows))
	require.NoError(t, os.WriteFile(fileName, buf.Bytes(), 0644))
}

// tallyBatch writes n mesh tallies to a temporary directory and returns the
// processed arguments for them.
func tallyBatch(t *testing.T, n int, raw RawArgs) *Args {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		writeTally(t, filepath.Join(dir, fmt.Sprintf("tally_%03d.msht", i)),
			100*float64(i))
	}
	raw.Inputs = filepath.Join(dir, fmt.Sprintf("tally_{%%03d,0..%d}.msht", n-1))
	raw.Output = filepath.Join(dir, "cache_{%03d,step}.vgr")
	args, err := raw.Process()
	require.NoError(t, err)
	return args
}

func TestParseConfigString(t *testing.T) {
	raw, err := ParseConfigString(ExampleConfig)
	require.NoError(t, err)

	assert.Equal(t, &RawArgs{
		Module:         "RealMCNP",
		MaxHeaderLines: 10000,
		Inputs:         "tally_{%03d,0..10}.msht",
		Output:         "cache/tally_{%03d,step}.vgr",
		Method:         "zstd",
		Accuracy:       0,
		Threads:        -1,
		Strictness:     "crash",
	}, raw)

	args, err := raw.Process()
	require.NoError(t, err)
	require.Len(t, args.Files, 11)
	assert.Equal(t, format.File{Name: "tally_007.msht", Step: 7}, args.Files[7])
	assert.Equal(t, "cache/tally_007.vgr", args.CachePaths[7])
	assert.Equal(t, CrashOnError, args.Strictness)

	_, err = ParseConfigString("[vizgrid]\nColor = blue\n")
	assert.Error(t, err)
}

func TestParseConfigFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "vizgrid.config")
	require.NoError(t, os.WriteFile(fileName, []byte(ExampleConfig), 0644))

	raw, err := ParseConfigFile(fileName)
	require.NoError(t, err)
	assert.Equal(t, "RealMCNP", raw.Module)

	_, err = ParseConfigFile(filepath.Join(t.TempDir(), "missing.config"))
	assert.Error(t, err)
}

func TestOverwrite(t *testing.T) {
	arg1 := &RawArgs{Module: "RealMCNP", Method: "zlib", Threads: 4}
	arg2 := &RawArgs{Module: "Reservoir", Accuracy: 0.5, Strictness: "warn"}
	arg1.Overwrite(arg2)

	assert.Equal(t, &RawArgs{
		Module: "Reservoir", Method: "zlib", Threads: 4,
		Accuracy: 0.5, Strictness: "warn",
	}, arg1)
}

func TestProcess(t *testing.T) {
	args, err := (&RawArgs{Method: "ZLib"}).Process("a.msht", "b_{%d,1..2}.res")
	require.NoError(t, err)
	assert.Equal(t, []format.File{{Name: "a.msht", Step: 0}, {Name: "b_1.res", Step: 1},
		{Name: "b_2.res", Step: 2}}, args.Files)
	assert.Equal(t, []string{"a.vgr", "b_1.vgr", "b_2.vgr"}, args.CachePaths)
	assert.Equal(t, "zlib", args.Method)

	args, err = (&RawArgs{}).Process("a.msht")
	require.NoError(t, err)
	assert.Equal(t, "zstd", args.Method)

	tests := []struct {
		name   string
		raw    RawArgs
		inputs []string
	}{
		{"no inputs", RawArgs{}, nil},
		{"bad module", RawArgs{Module: "Gadget2"}, []string{"a.msht"}},
		{"bad method", RawArgs{Method: "lz4"}, []string{"a.msht"}},
		{"delta accuracy", RawArgs{Method: "delta"}, []string{"a.msht"}},
		{"bad strictness", RawArgs{Strictness: "maybe"}, []string{"a.msht"}},
		{"header lines", RawArgs{MaxHeaderLines: -1}, []string{"a.msht"}},
		{"bad input", RawArgs{}, []string{"a_{%d,step}.msht"}},
		{"shared cache", RawArgs{Output: "all.vgr"},
			[]string{"a.msht", "b.msht"}},
		{"bad output", RawArgs{Output: "out_{%d,0..3}.vgr"},
			[]string{"a.msht"}},
	}

	for _, test := range tests {
		_, err := test.raw.Process(test.inputs...)
		assert.Error(t, err, test.name)
	}
}

func TestCachePath(t *testing.T) {
	path, err := CachePath("", format.File{Name: "run/tally.msht", Step: 3})
	require.NoError(t, err)
	assert.Equal(t, "run/tally.vgr", path)

	path, err = CachePath("out_{%02d,step}.vgr", format.File{Name: "run/tally.msht", Step: 3})
	require.NoError(t, err)
	assert.Equal(t, "out_03.vgr", path)
}

func TestForEach(t *testing.T) {
	for _, workers := range []int{1, 3, 100} {
		var calls int64
		errs := ForEach(10, workers, func(i int) error {
			atomic.AddInt64(&calls, 1)
			if i%4 == 0 {
				return fmt.Errorf("%d", i)
			}
			return nil
		})

		assert.Equal(t, int64(10), calls)
		require.Len(t, errs, 10)
		for i, err := range errs {
			if i%4 == 0 {
				assert.EqualError(t, err, fmt.Sprint(i))
			} else {
				assert.NoError(t, err)
			}
		}
	}

	assert.Empty(t, ForEach(0, 4, func(i int) error { return nil }))
}

func TestSetThreads(t *testing.T) {
	n, err := SetThreads(-1)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	_, err = SetThreads(1 << 20)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	args := tallyBatch(t, 3, RawArgs{Threads: 2})
	assert.NoError(t, Check(args, zap.NewNop()))

	require.NoError(t, os.Remove(args.Files[1].Name))
	err := Check(args, zap.NewNop())
	assert.True(t, errors.Is(err, gridio.ErrFileNotFound))

	core, logs := observer.New(zapcore.WarnLevel)
	args.Strictness = WarnOnError
	err = Check(args, zap.New(core))
	assert.EqualError(t, err, "1 of 3 files failed check.")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, args.Files[1].Name, logs.All()[0].ContextMap()["file"])
}

func TestConvertConfirm(t *testing.T) {
	for _, method := range []string{"zstd", "zlib", "delta"} {
		args := tallyBatch(t, 2, RawArgs{Method: method, Accuracy: 0.25})

		require.NoError(t, Convert(args, zap.NewNop()), method)
		require.NoError(t, Confirm(args, zap.NewNop()), method)

		g, module, err := compress.ReadGrid(args.CachePaths[1])
		require.NoError(t, err, method)
		assert.Equal(t, "RealMCNP", module)
		flux, err := g.Field(gridio.FluxField)
		require.NoError(t, err)
		for i, x := range flux {
			assert.InDelta(t, 100+float64(i), x, 0.125, method)
		}

		// Changing an input invalidates its cache.
		writeTally(t, args.Files[1].Name, 50)
		assert.Error(t, Confirm(args, zap.NewNop()), method)
	}
}

func TestConvertMissingCacheDir(t *testing.T) {
	args := tallyBatch(t, 1, RawArgs{})
	args.CachePaths[0] = filepath.Join(t.TempDir(), "missing", "cache.vgr")
	assert.Error(t, Convert(args, zap.NewNop()))
	assert.Error(t, Confirm(args, zap.NewNop()))
}

func TestLoadFileCache(t *testing.T) {
	args := tallyBatch(t, 1, RawArgs{})
	require.NoError(t, Convert(args, zap.NewNop()))

	g1, module1, err := LoadFile(args, args.Files[0].Name, zap.NewNop())
	require.NoError(t, err)
	g2, module2, err := LoadFile(args, args.CachePaths[0], zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, module1, module2)
	assert.Equal(t, g1.Dims(), g2.Dims())
	assert.Equal(t, g1.Names(), g2.Names())

	// A cache can't be converted into itself.
	cacheArgs, err := (&RawArgs{}).Process(args.CachePaths[0])
	require.NoError(t, err)
	assert.Error(t, Convert(cacheArgs, zap.NewNop()))
}

func TestInfo(t *testing.T) {
	args := tallyBatch(t, 2, RawArgs{})
	out := &bytes.Buffer{}
	require.NoError(t, Run(InfoMode, args, zap.NewNop(), out))

	summaries := []Summary{}
	dec := yaml.NewDecoder(out)
	for {
		s := Summary{}
		err := dec.Decode(&s)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		summaries = append(summaries, s)
	}
	require.Len(t, summaries, 2)

	s := summaries[1]
	assert.Equal(t, args.Files[1].Name, s.File)
	assert.Equal(t, "RealMCNP", s.Module)
	assert.Equal(t, [3]int{2, 1, 2}, s.Dims)
	assert.Equal(t, 4, s.Vertices)
	require.Len(t, s.Fields, 2)

	flux := s.Fields[0]
	assert.Equal(t, gridio.FluxField, flux.Name)
	assert.Equal(t, 100.0, flux.Min)
	assert.Equal(t, 103.0, flux.Max)
	assert.InDelta(t, 101.5, flux.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), flux.Std, 1e-12)
	assert.Empty(t, s.Vectors)

	for dim := 0; dim < 3; dim++ {
		assert.LessOrEqual(t, s.Bounds.Min[dim], s.Bounds.Max[dim])
	}
}

func TestRunMode(t *testing.T) {
	modes := []string{}
	for _, mode := range []RunMode{CheckMode, ConvertMode, ConfirmMode, InfoMode} {
		modes = append(modes, mode.String())
	}
	sort.Strings(modes)
	assert.Equal(t, []string{"check", "confirm", "convert", "info"}, modes)
	assert.Equal(t, "RunMode(9)", RunMode(9).String())

	args := tallyBatch(t, 1, RawArgs{})
	assert.Error(t, Run(RunMode(9), args, zap.NewNop(), io.Discard))
}
