package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xbuild/internal/logging"
	"xbuild/internal/prof"
	"xbuild/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "xbuild",
	Short: "Drive an external Java build tool and collect its problems",
	Long: `xbuild hands the sources of a project to an external build tool, reads
the problems it reports and records them as markers.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupGlobals,
}

func init() {
	rootCmd.Version = version.Current()

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(markersCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().String("config", "", "path to xbuild.toml (default: search upwards from the project)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("trace", "", "write a runtime execution trace to this file")
}

// profiling is started by setupGlobals and stopped when main returns.
var profiling *prof.Session

// main executes the root command with a context canceled on interrupt.
// Any error exits with status 1.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if profErr := profiling.Stop(); profErr != nil {
		fmt.Fprintf(os.Stderr, "profiling: %v\n", profErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// setupGlobals applies --color, installs the logger into the command
// context and starts any requested profiles.
func setupGlobals(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	colorValue, err := flags.GetString("color")
	if err != nil {
		return err
	}
	switch strings.ToLower(colorValue) {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorValue)
	}

	levelValue, err := flags.GetString("log-level")
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(levelValue)
	if err != nil {
		return err
	}
	formatValue, err := flags.GetString("log-format")
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), level, format)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, logger))

	var opts prof.Options
	if opts.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return err
	}
	if opts.Mem, err = flags.GetString("mem-profile"); err != nil {
		return err
	}
	if opts.Trace, err = flags.GetString("trace"); err != nil {
		return err
	}
	if opts.Enabled() {
		if profiling, err = prof.Start(opts); err != nil {
			return fmt.Errorf("start profiling: %w", err)
		}
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
