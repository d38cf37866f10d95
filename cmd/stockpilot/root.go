package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockpilot",
	Short: "StockPilot - Portfolio Report Orchestrator",
	Long: `StockPilot refreshes portfolio prices, synthesizes a daily report with
an LLM and a bounded tool-calling loop, and dispatches it by email. It exposes
an HTTP API with a live event stream and a persisted one-shot schedule that
survives restarts.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}
