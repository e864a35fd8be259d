package main

import (
	"fmt"
	"os"

	"github.com/aretw0/gmp/internal/presentation/graph"
	"github.com/aretw0/gmp/internal/presentation/tui"
	"github.com/aretw0/gmp/internal/runtime"
	redisadapter "github.com/aretw0/gmp/pkg/adapters/redis"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var planCmd = &cobra.Command{
	Use:   "plan [command-file]",
	Short: "Show how an APPLY command would be split across handlers",
	Long: `Decomposes an APPLY command against the handler paths without sending anything.
Handlers come from the configuration file, from --handler, and with --live
from the Redis registry.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		command, _ := loadCommand(cmd, args)
		if command.SequenceCommand != domain.SequenceApply {
			fmt.Printf("%s is sent as a whole to its handler; only APPLY is decomposed.\n", command.SequenceCommand)
			return
		}

		handlers, err := cfg.HandlerPaths()
		if err != nil {
			fail("%v", err)
		}
		extra, _ := cmd.Flags().GetStringSlice("handler")
		for _, h := range extra {
			p, err := domain.ParseConfigPath(h)
			if err != nil {
				fail("%v", err)
			}
			handlers = append(handlers, p)
		}
		if live, _ := cmd.Flags().GetBool("live"); live {
			client := newRedisClient(cfg)
			defer client.Close()
			registered, err := redisadapter.NewRegistry(client, redisadapter.WithPrefix(cfg.Redis.Prefix)).ApplyHandlers(cmd.Context())
			if err != nil {
				fail("%v", err)
			}
			handlers = append(handlers, registered...)
		}

		plan := runtime.NewPlan(command.Configuration, handlers)
		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Print(graph.GenerateMermaid(command.SequenceCommand, plan))
			return
		}

		md := tui.PlanMarkdown(command, plan)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if out, err := tui.NewRenderer()(md); err == nil {
				md = out
			}
		}
		fmt.Print(md)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	addCommandFlags(planCmd)
	planCmd.Flags().StringSlice("handler", nil, "Additional handler path (repeatable)")
	planCmd.Flags().Bool("live", false, "Include the handlers registered in Redis")
	planCmd.Flags().Bool("mermaid", false, "Print a Mermaid flowchart instead of a table")
}
