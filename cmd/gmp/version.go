package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/gmp"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the dispatcher build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gmp %s (%s, %s/%s)\n", strings.TrimSpace(gmp.Version), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
