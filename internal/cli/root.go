package cli

import (
	"github.com/spf13/cobra"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Flowline CLI",
	Long: `flowctl is the command-line interface for the Flowline analytics engine.

Seed synthetic operational data, inspect daily insights, and verify the
ROI ledger's hash chain from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8090", "flowline API base URL")
}
