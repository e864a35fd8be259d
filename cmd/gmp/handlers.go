package main

import (
	"fmt"

	redisadapter "github.com/aretw0/gmp/pkg/adapters/redis"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/spf13/cobra"
)

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "Manage the APPLY handler registry stored in Redis",
}

// withRegistry runs fn against the Redis registry of the configuration.
func withRegistry(cmd *cobra.Command, fn func(*redisadapter.Registry) error) {
	cfg := loadConfig(cmd)
	client := newRedisClient(cfg)
	defer client.Close()
	registry := redisadapter.NewRegistry(client, redisOptions(cfg, newLogger(cfg))...)
	if err := fn(registry); err != nil {
		fail("%v", err)
	}
}

var handlersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered handler paths",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withRegistry(cmd, func(r *redisadapter.Registry) error {
			paths, err := r.ApplyHandlers(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

var handlersAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Register handler paths",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		paths := parsePaths(args)
		withRegistry(cmd, func(r *redisadapter.Registry) error {
			for _, p := range paths {
				if err := r.Register(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Printf("registered %s\n", p)
			}
			return nil
		})
	},
}

var handlersRemoveCmd = &cobra.Command{
	Use:     "remove <path>...",
	Aliases: []string{"rm"},
	Short:   "Unregister handler paths",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		paths := parsePaths(args)
		withRegistry(cmd, func(r *redisadapter.Registry) error {
			for _, p := range paths {
				if err := r.Unregister(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Printf("unregistered %s\n", p)
			}
			return nil
		})
	},
}

func parsePaths(args []string) []domain.ConfigPath {
	paths := make([]domain.ConfigPath, 0, len(args))
	for _, a := range args {
		p, err := domain.ParseConfigPath(a)
		if err != nil {
			fail("%v", err)
		}
		if p.IsEmpty() {
			fail("empty handler path")
		}
		paths = append(paths, p)
	}
	return paths
}

func init() {
	rootCmd.AddCommand(handlersCmd)
	handlersCmd.AddCommand(handlersListCmd, handlersAddCmd, handlersRemoveCmd)
}
