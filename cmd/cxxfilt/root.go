package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skdltmxn/cxxfilt-go/internal/config"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	stdout io.Writer
	errOut io.Writer
	output io.Writer
	file   *os.File

	envFile    string
	outputFile string
	flags      config.Config
	cfg        config.Config

	logger *slog.Logger
	failed *color.Color
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, errOut: errOut, output: out}

	rootCmd := &cobra.Command{
		Use:   "cxxfilt [names...]",
		Short: "Demangle Itanium C++ symbol names",
		Long: `cxxfilt decodes Itanium C++ ABI mangled names (_Z...) into
readable declarations.

Names given as arguments are demangled one per line. Without arguments,
standard input is copied to standard output with every mangled name in
it replaced. Names that cannot be demangled are printed unchanged.

Settings can also come from CXXFILT_* environment variables or a
dotenv file given with --env-file; flags take precedence.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.closeOutput()
		},
		RunE: a.runFilter,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.outputFile, "output", "o", "", "write output to file instead of stdout")
	pf.BoolVar(&a.flags.ShowElided, "show-elided", false, "show empty packs, discriminators and thunk offsets")
	pf.BoolVar(&a.flags.ExpandStd, "expand-std", false, "print std::string and friends as full basic_ templates")
	pf.BoolVarP(&a.flags.NoParams, "no-params", "p", false, "do not print function parameters and return types")
	pf.StringVar(&a.flags.Color, "color", config.ColorAuto, "highlight names that fail to demangle (auto, always, never)")
	pf.BoolVar(&a.flags.Verbose, "verbose", false, "log decode failures to stderr")
	pf.StringVar(&a.envFile, "env-file", "", "read CXXFILT_* settings from a dotenv file")

	rootCmd.Flags().BoolVarP(&a.flags.StripUnderscore, "strip-underscore", "_", false, "strip the extra leading underscore of Mach-O names")
	rootCmd.Flags().IntVarP(&a.flags.Jobs, "jobs", "j", 1, "number of input lines demangled concurrently")

	rootCmd.AddCommand(newNmCmd(a))
	rootCmd.AddCommand(newDumpCmd(a))
	return rootCmd
}

// normalizeFlagName accepts --show_elided as --show-elided.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// setup merges the environment configuration with the flags that were
// set explicitly and opens the output.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("show-elided") {
		cfg.ShowElided = a.flags.ShowElided
	}
	if fs.Changed("expand-std") {
		cfg.ExpandStd = a.flags.ExpandStd
	}
	if fs.Changed("no-params") {
		cfg.NoParams = a.flags.NoParams
	}
	if fs.Changed("strip-underscore") {
		cfg.StripUnderscore = a.flags.StripUnderscore
	}
	if fs.Changed("jobs") {
		if a.flags.Jobs < 1 {
			return fmt.Errorf("--jobs must be at least 1, got %d", a.flags.Jobs)
		}
		cfg.Jobs = a.flags.Jobs
	}
	if fs.Changed("color") {
		if err := config.ValidateColor(a.flags.Color); err != nil {
			return err
		}
		cfg.Color = a.flags.Color
	}
	if fs.Changed("verbose") {
		cfg.Verbose = a.flags.Verbose
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	if a.outputFile != "" {
		f, err := os.Create(a.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		a.file = f
		a.output = f
	}

	a.failed = color.New(color.FgYellow)
	if a.useColor() {
		a.failed.EnableColor()
	} else {
		a.failed.DisableColor()
	}
	return nil
}

func (a *app) useColor() bool {
	switch a.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return a.file == nil && a.stdout == os.Stdout && !color.NoColor
}

func (a *app) closeOutput() {
	if a.file != nil {
		a.file.Close()
		a.file = nil
		a.output = a.stdout
	}
}
