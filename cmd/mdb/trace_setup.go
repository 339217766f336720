package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/tracelog"
)

// setupTracing builds the session log from the --trace-* flags. The
// recorder opens a span for the whole invocation; a failing invocation
// dumps the ring, if one is kept, to stderr.
func setupTracing(cmd *cobra.Command) error {
	flags := cmd.Flags()

	path, err := flags.GetString("trace-log")
	if err != nil {
		return fmt.Errorf("failed to get trace-log flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := tracelog.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	// --trace-log alone logs commands
	if level == tracelog.LevelOff && path != "" {
		level = tracelog.LevelCommand
	}
	mode, err := tracelog.ParseMode(modeStr)
	if err != nil {
		return err
	}
	rec, err := tracelog.New(tracelog.Config{Level: level, Mode: mode, Path: path, RingSize: ringSize})
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	current.rec = rec
	cmd.SetContext(tracelog.WithRecorder(cmd.Context(), rec))

	session := rec.Begin(tracelog.LevelCommand, cmd.CommandPath(), "")
	current.cleanup = append(current.cleanup, func(failed bool) {
		if failed {
			session.End("failed")
			dumpRing(rec)
		} else {
			session.End("")
		}
		if err := rec.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: %v\n", err)
		}
		current.rec = nil
	})
	return nil
}

func dumpRing(rec *tracelog.Recorder) {
	ring := rec.Ring()
	if ring == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "trace: last commands before the failure:")
	if err := ring.Dump(os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump: %v\n", err)
	}
}
