package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mdb/internal/ui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [expression]",
	Short: "Step through a metaprogram in a full-screen view",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func init() {
	addEvaluatorFlags(tuiCmd)
	tuiCmd.Flags().Int("depth", 0, "depth of the forward trace pane (0 = unbounded)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("tui needs a terminal; use `mdb debug` instead")
	}
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
	if depth < 0 {
		return fmt.Errorf("--depth must not be negative")
	}

	expr := headerExpr(ev)
	if len(args) == 1 {
		expr = args[0]
	}
	model := ui.NewDebugger(cmd.Context(), newEngine(ev), ui.Options{
		Expr:     expr,
		Mode:     mode,
		Color:    display.color,
		Depth:    depth,
		Recorder: current.rec,
	})
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = program.Run()
	return err
}
