package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/gmp/internal/runtime"
	redisadapter "github.com/aretw0/gmp/pkg/adapters/redis"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a fake instrument handler",
	Long: `Serves one destination over Redis like an instrument handler would, answering
every request with --response. STARTED requests are completed with --final
after --complete-after.

	gmp simulate --path X:S1 --register --response STARTED --final COMPLETED`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := newLogger(cfg)

		sequence, _ := cmd.Flags().GetString("sequence")
		sc, err := domain.ParseSequenceCommand(sequence)
		if err != nil {
			fail("%v", err)
		}
		pathText, _ := cmd.Flags().GetString("path")
		path, err := domain.ParseConfigPath(pathText)
		if err != nil {
			fail("%v", err)
		}
		answer := parseResponseFlag(cmd, "response")
		final := parseResponseFlag(cmd, "final")
		after, _ := cmd.Flags().GetDuration("complete-after")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := newRedisClient(cfg)
		defer client.Close()
		opts := redisOptions(cfg, logger)

		if register, _ := cmd.Flags().GetBool("register"); register && !path.IsEmpty() {
			registry := redisadapter.NewRegistry(client, opts...)
			if err := registry.Register(ctx, path); err != nil {
				fail("%v", err)
			}
			defer registry.Unregister(context.Background(), path)
		}

		destination := runtime.NewMessageBuilder(cfg.DestinationPrefix).Destination(sc, path)
		var responder *redisadapter.Responder
		responder = redisadapter.NewResponder(client, destination, func(_ context.Context, msg domain.ActionMessage) domain.HandlerResponse {
			logger.Info("Request received",
				"action_id", msg.ActionID,
				"activity", msg.Activity,
				"entries", len(msg.DataElements),
				"answer", answer.String(),
			)
			if answer.Kind == domain.KindStarted {
				go complete(ctx, logger, responder, msg, final, after)
			}
			return answer
		}, opts...)

		logger.Info("Simulating handler", "destination", destination)
		if err := responder.Run(ctx); err != nil {
			fail("%v", err)
		}
	},
}

func complete(ctx context.Context, logger *slog.Logger, r *redisadapter.Responder, msg domain.ActionMessage, final domain.HandlerResponse, after time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(after):
	}
	if err := r.Complete(ctx, msg, final); err != nil {
		logger.Error("Completion failed", "action_id", msg.ActionID, "error", err)
		return
	}
	logger.Info("Completion reported", "action_id", msg.ActionID, "response", final.String())
}

func parseResponseFlag(cmd *cobra.Command, name string) domain.HandlerResponse {
	v, _ := cmd.Flags().GetString(name)
	kind, err := domain.ParseResponseKind(v)
	if err != nil {
		fail("--%s: %v", name, err)
	}
	message, _ := cmd.Flags().GetString("message")
	return domain.NewResponse(kind, message)
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("sequence", "APPLY", "Sequence command served")
	simulateCmd.Flags().String("path", "", "Configuration path served, for APPLY")
	simulateCmd.Flags().Bool("register", false, "Register --path in the handler registry while running")
	simulateCmd.Flags().String("response", "COMPLETED", "Synchronous answer")
	simulateCmd.Flags().String("final", "COMPLETED", "Asynchronous completion of STARTED answers")
	simulateCmd.Flags().Duration("complete-after", time.Second, "Delay before the asynchronous completion")
	simulateCmd.Flags().String("message", "", "Message of ERROR answers")
}
