package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/prof"
	"mdb/internal/tracelog"
)

// session holds what setupSession started for the running command.
type session struct {
	cfg     *loadedConfig
	rec     *tracelog.Recorder
	cleanup []func(failed bool)
}

var current = &session{}

func setupSession(cmd *cobra.Command, _ []string) error {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(explicit, ".")
	if err != nil {
		return err
	}
	current.cfg = cfg

	if err := setupTracing(cmd); err != nil {
		return err
	}
	return setupProfiling(cmd)
}

// finishSession runs the cleanups in reverse order. They may be called
// without setupSession having run, e.g. for --help.
func finishSession(err error) {
	for i := len(current.cleanup) - 1; i >= 0; i-- {
		current.cleanup[i](err != nil)
	}
	current.cleanup = nil
}

// setupProfiling enables the profilers named by the persistent flags.
func setupProfiling(cmd *cobra.Command) error {
	flags := cmd.Flags()
	var cfg prof.Config
	var err error
	if cfg.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if cfg.Mem, err = flags.GetString("mem-profile"); err != nil {
		return fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if cfg.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !cfg.Enabled() {
		return nil
	}
	s, err := prof.Start(cfg)
	if err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	current.cleanup = append(current.cleanup, func(bool) {
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "profiling: %v\n", err)
		}
	})
	return nil
}
