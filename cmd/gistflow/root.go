package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gistflow",
	Short: "Turn study notes into structured study guides",
	Long: `GistFlow sends study notes to an LLM with a style specific prompt and
splits the completion into a summary, key terms, diagrams, practice
questions and other study sections.

Run "gistflow serve" for the HTTP API or "gistflow summarize" to process a
notes file from the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: $CONFIG_PATH or ./configs/config.yaml)",
	)

	rootCmd.AddCommand(serveCmd, summarizeCmd, stylesCmd)
}
