package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gmp",
	Short: "GMP dispatches observatory sequence commands to instrument handlers",
	Long: `GMP splits sequence commands across the instrument handlers registered for
their configuration paths, collects the replies and reports one response.

Handlers and the dispatcher talk through Redis; operators use the HTTP API
served by "gmp serve".`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "gmp.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
}
