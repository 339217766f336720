package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/tracelog"
	"mdb/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "mdb [expression]",
	Short: "Template metaprogram debugger",
	Long: `mdb steps through the template instantiations and macro expansions a
compiler performs while evaluating a type expression.

Without a subcommand it starts the interactive debugger.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setupSession,
	RunE:              runDebug,
}

// main registers subcommands and persistent flags, then executes the root
// command. A failing command exits with status 1.
func main() {
	rootCmd.Version = version.Get().Version

	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(forwardtraceCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "configuration file (default: nearest .mdb.toml)")
	pf.String("color", "", "colorize output (auto|on|off)")
	pf.Int("width", -1, "wrap forward traces at this width (0 disables, default terminal width)")
	pf.Bool("timings", false, "print phase durations after every evaluation")
	pf.Bool("no-cache", false, "do not read or write the evaluation cache")

	pf.String("trace-log", "", "log the debugger's own commands and phases to file (- for stderr)")
	pf.String("trace-level", "off", "session log level (off|command|phase|step)")
	pf.String("trace-mode", "stream", "session log storage (stream|ring|both|zap)")
	pf.Int("trace-ring-size", tracelog.DefaultRingSize, "events kept by the ring storage")

	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")

	addEvaluatorFlags(rootCmd)
	addEvaluatorFlags(debugCmd)
	rootCmd.Flags().String("script", "", "read commands from file instead of the terminal")
	debugCmd.Flags().String("script", "", "read commands from file instead of the terminal")

	err := rootCmd.ExecuteContext(context.Background())
	finishSession(err)
	if err != nil {
		os.Exit(1)
	}
}
