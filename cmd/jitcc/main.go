package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/jdryg/jitcc/pkg/config"
	"github.com/jdryg/jitcc/pkg/ir"
	"github.com/jdryg/jitcc/pkg/ir/pass"
	"github.com/jdryg/jitcc/pkg/mir"
	"github.com/jdryg/jitcc/pkg/mir/lower"
	mirpass "github.com/jdryg/jitcc/pkg/mir/pass"
	"github.com/jdryg/jitcc/pkg/regalloc"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Global flags shared by every subcommand.
var (
	passOrder  []string
	configPath string
	verbose    bool
	dumpIR     bool
	dumpMIR    bool
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*ir.InvariantError)
			if !ok {
				panic(r)
			}
			color.New(color.FgRed).Fprintf(os.Stderr, "jitcc: invariant violation: %s\n", ie.Msg)
			code = 1
		}
	}()
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jitcc",
		Short:         "jitcc is a typed SSA IR and Windows x64 machine IR backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().StringSliceVar(&passOrder, "passes", nil, "comma/repeatable list overriding the default IR pass order")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "jitcc.yaml", "path to an optional jitcc.yaml config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "raise the log level to report every pass that changes a function")
	rootCmd.PersistentFlags().BoolVar(&dumpIR, "dump-ir", false, "print the IR module before lowering")
	rootCmd.PersistentFlags().BoolVar(&dumpMIR, "dump-mir", false, "print the MIR program before register allocation")

	rootCmd.AddCommand(newBuildCmd(out, errOut))
	rootCmd.AddCommand(newOptCmd(out, errOut))
	rootCmd.AddCommand(newRegallocCmd(out, errOut))
	return rootCmd
}

// loadConfig reads configPath (tolerating its absence), applies its
// allocator overrides, folds in any --passes override, and returns the
// pipeline the rest of the command should run.
func loadConfig(errOut io.Writer) (*pass.Pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(passOrder) > 0 {
		cfg.Passes = passOrder
	}
	cfg.Apply()
	p, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	return p, nil
}

// parseAndCheck reads and validates one .jir file, recovering any
// *ir.InvariantError as a reported, non-panicking failure.
func parseAndCheck(filename string, errOut io.Writer) (m *ir.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*ir.InvariantError); ok {
				err = fmt.Errorf("invariant violation: %s", ie.Msg)
				return
			}
			panic(r)
		}
	}()

	content, readErr := os.ReadFile(filename)
	if readErr != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, readErr)
	}
	m, parseErr := ir.Parse(filename, string(content))
	if parseErr != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, parseErr)
	}
	ir.CheckModule(m)
	return m, nil
}

func runPipeline(m *ir.Module, p *pass.Pipeline) {
	for _, f := range m.Functions {
		if f.External() {
			continue
		}
		changed := p.Run(f)
		if verbose {
			slog.Debug("pipeline converged", "function", f.Name, "passes_applied", changed)
		}
	}
	pass.RunInliner(m, 40)
}

func newBuildCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "build <file.jir>",
		Short: "run the full IR pipeline, lower to MIR, allocate registers, and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadConfig(errOut)
			if err != nil {
				color.New(color.FgRed).Fprintf(errOut, "jitcc: %v\n", err)
				return err
			}
			m, err := parseAndCheck(args[0], errOut)
			if err != nil {
				color.New(color.FgRed).Fprintf(errOut, "jitcc: %v\n", err)
				return err
			}
			runPipeline(m, p)
			if dumpIR {
				fmt.Fprint(out, ir.Print(m))
			}
			if dumpMIR {
				mir.NewPrinter(out).PrintProgram(lower.Module(m))
			}

			prog := lower.Compile(m)
			mirpass.RunProgram(prog)

			mir.NewPrinter(out).PrintProgram(prog)
			color.New(color.FgGreen).Fprintf(errOut, "jitcc: compiled %s\n", args[0])
			return nil
		},
	}
}

func newOptCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "opt <file.jir>",
		Short: "run only the IR pass pipeline and print the resulting IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadConfig(errOut)
			if err != nil {
				color.New(color.FgRed).Fprintf(errOut, "jitcc: %v\n", err)
				return err
			}
			m, err := parseAndCheck(args[0], errOut)
			if err != nil {
				color.New(color.FgRed).Fprintf(errOut, "jitcc: %v\n", err)
				return err
			}
			runPipeline(m, p)
			fmt.Fprint(out, ir.Print(m))
			color.New(color.FgGreen).Fprintf(errOut, "jitcc: optimized %s\n", args[0])
			return nil
		},
	}
}

func newRegallocCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "regalloc <file.jir>",
		Short: "lower straight to MIR and print before/after register allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(errOut); err != nil {
				color.New(color.FgRed).Fprintf(errOut, "jitcc: %v\n", err)
				return err
			}
			m, err := parseAndCheck(args[0], errOut)
			if err != nil {
				color.New(color.FgRed).Fprintf(errOut, "jitcc: %v\n", err)
				return err
			}

			prog := lower.Module(m)
			printer := mir.NewPrinter(out)
			fmt.Fprintln(out, "; before register allocation")
			printer.PrintProgram(prog)

			for _, f := range prog.Functions {
				regalloc.AllocateAndRewrite(f)
				f.Frame.Finalize()
				lower.AddPrologueEpilogue(f)
			}
			mirpass.RunProgram(prog)

			fmt.Fprintln(out, "\n; after register allocation")
			printer.PrintProgram(prog)
			color.New(color.FgGreen).Fprintf(errOut, "jitcc: allocated %s\n", args[0])
			return nil
		},
	}
}
