// Package cmd implements the fanlore command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fanlore",
	Short: "Fanlore - creator content chat backend",
	Long: `Fanlore indexes a creator's content (PDFs, video and reel transcripts)
into a vector store and answers fan questions grounded in that content.

Run "fanlore serve" to start the HTTP API.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
