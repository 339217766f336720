package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mdb/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mdb version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		display, err := resolveDisplay(cmd, os.Stdout)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), version.Get().Line(display.color))
		return err
	},
}
