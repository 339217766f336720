package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/mdb"
)

var forwardtraceCmd = &cobra.Command{
	Use:     "forwardtrace [expression]",
	Aliases: []string{"ft"},
	Short:   "Print the whole instantiation tree of an expression",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runForwardtrace,
}

func init() {
	addEvaluatorFlags(forwardtraceCmd)
	forwardtraceCmd.Flags().Int("depth", -1, "maximum depth to print (-1 = unbounded)")
}

func runForwardtrace(cmd *cobra.Command, args []string) error {
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
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}

	expr := headerExpr(ev)
	if len(args) == 1 {
		expr = args[0]
	}
	if expr == "" {
		return errors.New("expression expected")
	}

	eng := newEngine(ev)
	if err := eng.Evaluate(cmd.Context(), expr, mode); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := eng.Forwardtrace(out, mdb.ForwardtraceOptions{
		MaxDepth: depth,
		Width:    display.width,
		Color:    display.color,
	}); err != nil {
		return err
	}
	if res, ok := eng.Result(); ok && res.IsError() {
		fmt.Fprintf(cmd.ErrOrStderr(), "evaluation failed: %s\n", res.Text)
	}
	if display.timings {
		fmt.Fprint(cmd.ErrOrStderr(), eng.TimingSummary())
	}
	return nil
}
