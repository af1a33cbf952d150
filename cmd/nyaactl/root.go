package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nyaactl",
		Short:         "Inspect and maintain a NyaaParser installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newShowsCommand())
	rootCmd.AddCommand(newEpisodesCommand())
	rootCmd.AddCommand(newImportLegacyCommand())
	rootCmd.AddCommand(newImportLegacyShowsCommand())

	return rootCmd
}
