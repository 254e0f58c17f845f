package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phil-mansfield/vizgrid/lib"
	vgerror "github.com/phil-mansfield/vizgrid/lib/error"
	"github.com/phil-mansfield/vizgrid/lib/gridio"
)

var (
	// Global flags
	verbose    bool
	configFile string

	// flagArgs holds config variables set on the command line. They
	// overwrite the values in the config file.
	flagArgs lib.RawArgs

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "vizgrid",
	Short: "vizgrid - structured grid loader and cache tool",
	Long: `vizgrid loads structured grids from simulation output (MCNP mesh
tallies and reservoir dumps), reports problems with them, and converts them
into compressed .vgr cache files.

Files can be listed on the command line or given as a file format in a config
file, e.g. Inputs = "tally_{%03d,0..40}.msht". Run "vizgrid config" to print
an example config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Load files and report any errors",
	RunE:  runCheck,
}

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Load files and write them to .vgr cache files",
	Long: `Load files and write them to .vgr cache files. Each cache is written
next to its input unless Output/--output gives a file format for them, e.g.
--output "cache/tally_{%03d,step}.vgr".`,
	RunE: runConvert,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [files...]",
	Short: "Check that .vgr cache files match their inputs",
	RunE:  runConfirm,
}

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Print a YAML summary of each grid",
	RunE:  runInfo,
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules that can load grids",
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print an example config file",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file with a [vizgrid] section")

	// Config variables
	rootCmd.PersistentFlags().StringVarP(&flagArgs.Module, "module", "m", "", "Module that reads the inputs (default: by extension)")
	rootCmd.PersistentFlags().IntVar(&flagArgs.MaxHeaderLines, "max-header-lines", 0, "Lines searched for header information (default 10000)")
	rootCmd.PersistentFlags().StringVarP(&flagArgs.Inputs, "inputs", "i", "", "File format of the inputs, e.g. \"tally_{%03d,0..10}.msht\"")
	rootCmd.PersistentFlags().StringVarP(&flagArgs.Output, "output", "o", "", "File format of the cache files, e.g. \"tally_{%03d,step}.vgr\"")
	rootCmd.PersistentFlags().StringVar(&flagArgs.Method, "method", "", "Cache compression method: zstd, zlib, or delta")
	rootCmd.PersistentFlags().Float64Var(&flagArgs.Accuracy, "accuracy", 0, "Accuracy of the delta method")
	rootCmd.PersistentFlags().IntVarP(&flagArgs.Threads, "threads", "t", 0, "Files processed at once (default: one per core)")
	rootCmd.PersistentFlags().StringVar(&flagArgs.Strictness, "strictness", "", "What to do when a file fails: crash or warn")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	// Errors from before the logger is configured still need to go somewhere.
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
	defer func() {
		if r := recover(); r != nil {
			vgerror.Internal("%v", r)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		vgerror.External("%s", err.Error())
	}
}

// processArgs combines the config file, command line flags, and file
// arguments.
func processArgs(files []string) (*lib.Args, error) {
	raw := &lib.RawArgs{}
	if configFile != "" {
		var err error
		if raw, err = lib.ParseConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	raw.Overwrite(&flagArgs)

	args, err := raw.Process(files...)
	if err != nil {
		return nil, err
	}
	if args.Threads, err = lib.SetThreads(args.Threads); err != nil {
		return nil, err
	}
	return args, nil
}

func runMode(mode lib.RunMode, cmd *cobra.Command, files []string) error {
	args, err := processArgs(files)
	if err != nil {
		return err
	}
	logger.Debug("starting run", zap.Stringer("mode", mode),
		zap.Int("files", len(args.Files)), zap.Int("threads", args.Threads))

	if err := lib.Run(mode, args, logger, cmd.OutOrStdout()); err != nil {
		return err
	}
	if mode != lib.InfoMode {
		fmt.Fprintln(cmd.OutOrStdout(), "No errors detected.")
	}
	return nil
}

// runCheck runs vizgrid's "check" mode, which tests whether every input file
// can be loaded.
func runCheck(cmd *cobra.Command, args []string) error {
	return runMode(lib.CheckMode, cmd, args)
}

// runConvert runs vizgrid's "convert" mode, which writes every input file to
// a .vgr cache.
func runConvert(cmd *cobra.Command, args []string) error {
	return runMode(lib.ConvertMode, cmd, args)
}

// runConfirm runs vizgrid's "confirm" mode, which checks that the .vgr caches
// written by "convert" match their input files.
func runConfirm(cmd *cobra.Command, args []string) error {
	return runMode(lib.ConfirmMode, cmd, args)
}

func runInfo(cmd *cobra.Command, args []string) error {
	return runMode(lib.InfoMode, cmd, args)
}

func runModules(cmd *cobra.Command, args []string) error {
	for _, name := range gridio.Default.Names() {
		m, err := gridio.Default.Create(name, gridio.Options{})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name,
			strings.Join(m.Extensions(), " "))
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	_, err := io.WriteString(cmd.OutOrStdout(), lib.ExampleConfig)
	return err
}
