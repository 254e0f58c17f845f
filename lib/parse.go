package lib

import (
	"fmt"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/vizgrid/lib/compress"
	"github.com/phil-mansfield/vizgrid/lib/format"
	"github.com/phil-mansfield/vizgrid/lib/gridio"
)

// ExampleConfig is a config file which sets every variable. It's printed
// by "vizgrid config".
const ExampleConfig = `[vizgrid]

# Module is the name of the module that reads the input files. If it's empty,
# the module is chosen by each file's extension. Run "vizgrid modules" to
# see the options.
Module = RealMCNP

# MaxHeaderLines is the number of lines that will be searched for header
# information before giving up. 0 means the default of 10000.
MaxHeaderLines = 10000

# Inputs is a file format giving the files to process. Command line arguments
# are added to it. E.g. "run{%02d,step}/tally_{%03d,0..40 - 17}.msht"
Inputs = "tally_{%03d,0..10}.msht"

# Output is the file format of the cache files written by convert. It can only
# use the "step" rule. If it's empty, each cache file is written next to its
# input.
Output = "cache/tally_{%03d,step}.vgr"

# Method is the compression method used by the cache: zstd, zlib, or delta.
# delta is lossy and stores values to within Accuracy/2.
Method = zstd
Accuracy = 0

# Threads is the number of files processed at the same time. -1 means one
# per core.
Threads = -1

# Strictness is what happens when a file can't be processed: "crash" stops
# with its error and "warn" reports it and keeps going.
Strictness = crash
`

// RawArgs stores the unprocessed values which the user assigned to each config
// variable. Zero values mean the variable wasn't set.
type RawArgs struct {
	Module         string
	MaxHeaderLines int
	Inputs         string
	Output         string
	Method         string
	Accuracy       float64
	Threads        int
	Strictness     string
}

// Config is the layout of a config file.
type Config struct {
	VizGrid RawArgs
}

// Args stores configuration information. It is a post-processed version of
// RawArgs.
type Args struct {
	Module         string
	MaxHeaderLines int
	Files          []format.File
	Output         string
	// CachePaths[i] is the cache file for Files[i].
	CachePaths []string
	Method     string
	Accuracy   float64
	Threads    int
	Strictness CheckStrictness
}

// ParseConfigFile parses arguements from a config file.
func ParseConfigFile(fileName string) (*RawArgs, error) {
	config := &Config{}
	if err := gcfg.ReadFileInto(config, fileName); err != nil {
		return nil, fmt.Errorf("Could not parse the config file %s: %w",
			fileName, err)
	}
	return &config.VizGrid, nil
}

// ParseConfigString parses arguments from the text of a config file.
func ParseConfigString(text string) (*RawArgs, error) {
	config := &Config{}
	if err := gcfg.ReadStringInto(config, text); err != nil {
		return nil, fmt.Errorf("Could not parse config text: %w", err)
	}
	return &config.VizGrid, nil
}

// Overwrite arguments in arg1 which have been set to non-default values in
// arg2.
func (arg1 *RawArgs) Overwrite(arg2 *RawArgs) {
	if arg2.Module != "" {
		arg1.Module = arg2.Module
	}
	if arg2.MaxHeaderLines != 0 {
		arg1.MaxHeaderLines = arg2.MaxHeaderLines
	}
	if arg2.Inputs != "" {
		arg1.Inputs = arg2.Inputs
	}
	if arg2.Output != "" {
		arg1.Output = arg2.Output
	}
	if arg2.Method != "" {
		arg1.Method = arg2.Method
	}
	if arg2.Accuracy != 0 {
		arg1.Accuracy = arg2.Accuracy
	}
	if arg2.Threads != 0 {
		arg1.Threads = arg2.Threads
	}
	if arg2.Strictness != "" {
		arg1.Strictness = arg2.Strictness
	}
}

// Process converts the raw user input to a format which is more useful for
// internal functions. inputs are additional input file formats, usually from
// the command line, which are processed after args.Inputs. Very simple
// validation will be done here, but nothing which requires interacting with
// external files.
func (args *RawArgs) Process(inputs ...string) (*Args, error) {
	out := &Args{
		Module:         args.Module,
		MaxHeaderLines: args.MaxHeaderLines,
		Output:         args.Output,
		Method:         strings.ToLower(args.Method),
		Accuracy:       args.Accuracy,
		Threads:        args.Threads,
	}

	if args.Module != "" && !hasString(gridio.Default.Names(), args.Module) {
		return nil, fmt.Errorf("Module was set to '%s', but the only "+
			"modules are %s.", args.Module, gridio.Default.Names())
	}
	if args.MaxHeaderLines < 0 {
		return nil, fmt.Errorf("MaxHeaderLines was set to %d, but it can't "+
			"be negative.", args.MaxHeaderLines)
	}
	if out.Method == "" {
		out.Method = "zstd"
	}
	if _, err := compress.MethodFromName(out.Method, args.Accuracy); err != nil {
		return nil, err
	}

	switch strings.ToLower(args.Strictness) {
	case "", "crash":
		out.Strictness = CrashOnError
	case "warn":
		out.Strictness = WarnOnError
	default:
		return nil, fmt.Errorf("Strictness was set to '%s', but it can "+
			"only be 'crash' or 'warn'.", args.Strictness)
	}

	formats := inputs
	if args.Inputs != "" {
		formats = append([]string{args.Inputs}, inputs...)
	}
	for _, f := range formats {
		files, err := format.ExpandInputFormat(f)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, files...)
	}
	if len(out.Files) == 0 {
		return nil, fmt.Errorf("No input files were given. Set Inputs in " +
			"the config file or list files on the command line.")
	}

	// Check that no two inputs would share a cache file.
	owner := map[string]string{}
	out.CachePaths = make([]string, len(out.Files))
	for i, file := range out.Files {
		path, err := CachePath(args.Output, file)
		if err != nil {
			return nil, err
		}
		if prev, ok := owner[path]; ok {
			return nil, fmt.Errorf("The input files %s and %s would both be "+
				"cached in %s. Add a step variable to Output.",
				prev, file.Name, path)
		}
		owner[path] = file.Name
		out.CachePaths[i] = path
	}

	return out, nil
}

// NewMethod returns a new instance of the compression method given by args.
// Methods aren't safe to share between threads, so each file gets its own.
func (args *Args) NewMethod() (compress.Method, error) {
	return compress.MethodFromName(args.Method, args.Accuracy)
}

func hasString(x []string, s string) bool {
	for i := range x {
		if x[i] == s {
			return true
		}
	}
	return false
}
