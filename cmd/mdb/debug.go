package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/shell"
)

var debugCmd = &cobra.Command{
	Use:   "debug [expression]",
	Short: "Start the interactive debugger",
	Long: `Start the line-oriented debugger. When an expression is given, or the
--trace file records one, it is evaluated before the first prompt.

Commands are read from the terminal, from standard input when it is not a
terminal, or from the file given with --script.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	ev, err := evaluatorFromFlags(cmd)
	if err != nil {
		return err
	}
	mode, err := evaluationMode(cmd)
	if err != nil {
		return err
	}
	display, err := resolveDisplay(cmd, os.Stdout)
	if err != nil {
		return err
	}
	scriptPath, err := cmd.Flags().GetString("script")
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	interactive := scriptPath == "" && isTerminal(os.Stdin)
	if scriptPath != "" {
		f, err := os.Open(scriptPath)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	expr := headerExpr(ev)
	if len(args) == 1 {
		expr = args[0]
	}
	var startup []string
	if expr != "" {
		startup = append(startup, evaluateCommand(mode, expr))
	}

	sh := shell.New(newEngine(ev), cmd.OutOrStdout(), shell.Options{
		Interactive: interactive,
		Width:       display.width,
		Color:       display.color,
		Timings:     display.timings,
		Recorder:    current.rec,
		Startup:     startup,
	})
	return sh.Run(cmd.Context(), in)
}
