package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/mdb"
	"mdb/internal/source"
)

var errNoSource = errors.New("no trace to debug: pass --trace <file> or configure [compiler].command in .mdb.toml")

func addEvaluatorFlags(cmd *cobra.Command) {
	cmd.Flags().String("trace", "", "replay a recorded trace file instead of running the compiler")
	cmd.Flags().Bool("full", false, "expand every instantiation, including memoized ones")
	cmd.Flags().Bool("profile", false, "order children by compilation time")
}

func evaluationMode(cmd *cobra.Command) (mdb.Mode, error) {
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return mdb.ModeNormal, err
	}
	profile, err := cmd.Flags().GetBool("profile")
	if err != nil {
		return mdb.ModeNormal, err
	}
	switch {
	case full && profile:
		return mdb.ModeNormal, errors.New("--full and --profile are mutually exclusive")
	case full:
		return mdb.ModeFull, nil
	case profile:
		return mdb.ModeProfile, nil
	default:
		return mdb.ModeNormal, nil
	}
}

// evaluatorFromFlags reads --trace and --no-cache and builds the evaluator.
func evaluatorFromFlags(cmd *cobra.Command) (source.Evaluator, error) {
	tracePath, err := cmd.Flags().GetString("trace")
	if err != nil {
		return nil, err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	return buildEvaluator(tracePath, noCache)
}

// buildEvaluator picks the event source: a trace file when tracePath is set,
// otherwise the configured compiler, cached on disk unless disabled.
func buildEvaluator(tracePath string, noCache bool) (source.Evaluator, error) {
	cfg := current.cfg
	if tracePath != "" {
		return source.NewFileEvaluator(tracePath), nil
	}
	if len(cfg.Compiler.Command) == 0 {
		return nil, errNoSource
	}
	ce, err := source.NewCommandEvaluator(source.CommandOptions{
		Argv:         cfg.Compiler.Command,
		Prelude:      cfg.Compiler.Prelude,
		InternalFile: cfg.Filter.InternalFile,
		WrapPrefix:   cfg.Filter.WrapPrefix,
		WrapSuffix:   cfg.Filter.WrapSuffix,
	})
	if err != nil {
		return nil, err
	}
	if noCache || !cfg.Cache.enabled() {
		return ce, nil
	}
	cache, err := source.OpenDiskCache(cfg.Cache.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache disabled: %v\n", err)
		return ce, nil
	}
	return &source.CachedEvaluator{Inner: ce, Cache: cache, Salt: ce.Fingerprint()}, nil
}

// headerExpr returns the expression recorded in the --trace file, if any.
func headerExpr(ev source.Evaluator) string {
	fe, ok := ev.(*source.FileEvaluator)
	if !ok {
		return ""
	}
	hdr, err := fe.Header()
	if err != nil {
		return ""
	}
	return hdr.Expr
}

func newEngine(ev source.Evaluator) *mdb.Engine {
	return mdb.New(ev, mdb.Options{
		WrapPrefix: current.cfg.Filter.WrapPrefix,
		WrapSuffix: current.cfg.Filter.WrapSuffix,
		Recorder:   current.rec,
	})
}

type displayOptions struct {
	width   int
	color   bool
	timings bool
}

// resolveDisplay merges flags over the configuration file and the terminal.
func resolveDisplay(cmd *cobra.Command, out *os.File) (displayOptions, error) {
	flags := cmd.Flags()
	var opts displayOptions

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return opts, err
	}
	if colorFlag == "" {
		colorFlag = current.cfg.Display.Color
	}
	mode, err := readColorMode(colorFlag)
	if err != nil {
		return opts, err
	}
	opts.color = shouldColor(mode, out)

	width, err := flags.GetInt("width")
	if err != nil {
		return opts, err
	}
	switch {
	case width >= 0:
		opts.width = width
	case current.cfg.Display.Width > 0:
		opts.width = current.cfg.Display.Width
	default:
		opts.width = terminalWidth(out)
	}

	if opts.timings, err = flags.GetBool("timings"); err != nil {
		return opts, err
	}
	return opts, nil
}

// evaluateCommand is the shell line evaluating expr in mode.
func evaluateCommand(mode mdb.Mode, expr string) string {
	switch mode {
	case mdb.ModeFull:
		return "evaluate -full " + expr
	case mdb.ModeProfile:
		return "evaluate -profile " + expr
	default:
		return "evaluate " + expr
	}
}
