package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keydogger/internal/config"
)

func newInitConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to --config (or the default location).
An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.path()
			if err := config.WriteDefault(path); err != nil {
				return withCode(exitConfig, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keydogger %s\n", version)
		},
	}
}
