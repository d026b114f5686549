// Package main implements the converge CLI for running and serving
// multi-round convergence sessions.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "converge",
	Short:   "CLI for the convergence controller",
	Long:    `converge runs multi-round LLM planning sessions to a stability- or completion-based termination point.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
