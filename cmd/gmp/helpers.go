package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/gmp"
	"github.com/aretw0/gmp/internal/logging"
	httpadapter "github.com/aretw0/gmp/pkg/adapters/http"
	loamadapter "github.com/aretw0/gmp/pkg/adapters/loam"
	redisadapter "github.com/aretw0/gmp/pkg/adapters/redis"
	"github.com/aretw0/gmp/pkg/config"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/observability"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig reads --config and applies --log-level.
func loadConfig(cmd *cobra.Command) config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fail("%v", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fail("%v", err)
	}
	return logging.New(level)
}

func newRedisClient(cfg config.Config) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func redisOptions(cfg config.Config, logger *slog.Logger) []redisadapter.Option {
	return []redisadapter.Option{
		redisadapter.WithPrefix(cfg.Redis.Prefix),
		redisadapter.WithTimeout(cfg.DefaultTimeout),
		redisadapter.WithLogger(logger),
	}
}

// stack is a Dispatcher wired to Redis, as run by serve and mcp.
type stack struct {
	client     *backend.Client
	registry   *redisadapter.Registry
	dispatcher *gmp.Dispatcher
	metrics    *observability.Metrics
	streams    *httpadapter.StreamManager
	consumer   *redisadapter.UpdateConsumer
}

func newStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	client := newRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
	}
	// Updates left in Redis by a previous run carry another instance id.
	opts := append(redisOptions(cfg, logger), redisadapter.WithInstance(redisadapter.NewInstanceID()))

	registry := redisadapter.NewRegistry(client, opts...)
	paths, err := cfg.HandlerPaths()
	if err != nil {
		client.Close()
		return nil, err
	}
	for _, p := range paths {
		if err := registry.Register(ctx, p); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to register handler %s: %w", p, err)
		}
	}

	s := &stack{
		client:   client,
		registry: registry,
		metrics:  observability.NewMetrics(nil),
		streams:  httpadapter.NewStreamManager(),
	}
	hooks := s.metrics.Hooks().
		Merge(observability.LogHooks(logger)).
		Merge(s.streams.Hooks())

	s.dispatcher, err = gmp.New(
		gmp.WithSender(redisadapter.NewSender(client, opts...)),
		gmp.WithHandlers(registry),
		gmp.WithDestinationPrefix(cfg.DestinationPrefix),
		gmp.WithDefaultTimeout(cfg.DefaultTimeout),
		gmp.WithDispatchHooks(hooks),
		gmp.WithLogger(logger),
	)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.consumer = redisadapter.NewUpdateConsumer(client, s.dispatcher, opts...)
	return s, nil
}

func (s *stack) Close() error {
	return s.client.Close()
}

// addCommandFlags declares the flags read by loadCommand.
func addCommandFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("preset", "p", "", "Name of a preset to load instead of a command file")
	cmd.Flags().String("library", "presets", "Directory holding the presets")
}

// loadCommand loads the command named by the file argument or by --preset.
// The returned timeout is the preset's, if any.
func loadCommand(cmd *cobra.Command, args []string) (domain.Command, time.Duration) {
	preset, _ := cmd.Flags().GetString("preset")
	if preset == "" {
		if len(args) == 0 {
			fail("a command file or --preset is required")
		}
		c, err := config.LoadCommand(args[0])
		if err != nil {
			fail("%v", err)
		}
		return c, 0
	}

	dir, _ := cmd.Flags().GetString("library")
	lib, err := loamadapter.Open(dir)
	if err != nil {
		fail("%v", err)
	}
	p, err := lib.Get(cmd.Context(), preset)
	if err != nil {
		fail("%v", err)
	}
	return p.Command, p.Timeout
}
