package main

import (
	"fmt"

	loamadapter "github.com/aretw0/gmp/pkg/adapters/loam"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Browse the command presets library",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List preset names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		lib := openLibrary(cmd)
		names, err := lib.List(cmd.Context())
		if err != nil {
			fail("%v", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := openLibrary(cmd).Get(cmd.Context(), args[0])
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("%s: %s/%s\n", p.Name, p.Command.SequenceCommand, p.Command.Activity)
		if p.Timeout > 0 {
			fmt.Printf("timeout: %s\n", p.Timeout)
		}
		for _, k := range p.Command.Configuration.Keys() {
			v, _ := p.Command.Configuration.Value(k)
			fmt.Printf("  %s = %s\n", k, v)
		}
		if p.Description != "" {
			fmt.Printf("\n%s\n", p.Description)
		}
	},
}

func openLibrary(cmd *cobra.Command) *loamadapter.Library {
	dir, _ := cmd.Flags().GetString("library")
	lib, err := loamadapter.Open(dir)
	if err != nil {
		fail("%v", err)
	}
	return lib
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.PersistentFlags().String("library", "presets", "Directory holding the presets")
	presetsCmd.AddCommand(presetsListCmd, presetsShowCmd)
}
