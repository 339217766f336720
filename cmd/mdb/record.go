package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mdb/internal/tracefile"
)

var recordCmd = &cobra.Command{
	Use:   "record <expression>",
	Short: "Run the compiler on an expression and store its trace",
	Long: `Evaluate an expression with the configured compiler and write the trace
to a file that "mdb debug --trace" can replay. The encoding follows the
extension: .mp or .msgpack for MessagePack, anything else for NDJSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringP("output", "o", "trace.ndjson", "output file")
	recordCmd.Flags().String("format", "", "force the encoding (ndjson|msgpack)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format := tracefile.FormatForPath(output)
	if formatFlag != "" {
		if format, err = tracefile.ParseFormat(formatFlag); err != nil {
			return err
		}
	}

	// record always runs the compiler
	ev, err := buildEvaluator("", true)
	if err != nil {
		return err
	}
	expr := strings.TrimSpace(args[0])
	evaluation, err := ev.Evaluate(cmd.Context(), expr)
	if err != nil {
		return err
	}
	if err := tracefile.WriteFileFormat(output, format, evaluation.File()); err != nil {
		return err
	}

	res, _ := evaluation.Result()
	fmt.Fprintf(cmd.OutOrStdout(), "recorded %d events to %s (%s)\n", len(evaluation.Events), output, format)
	if res.IsError() {
		fmt.Fprintf(cmd.OutOrStdout(), "evaluation failed: %s\n", res.Text)
	}
	return nil
}
