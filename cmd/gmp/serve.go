package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/gmp"
	"github.com/aretw0/gmp/internal/presentation/tui"
	httpadapter "github.com/aretw0/gmp/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatcher and its HTTP API",
	Long: `Starts the dispatcher over Redis, consumes asynchronous handler completions
and exposes the HTTP API, including /metrics and the /events stream.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		logger := newLogger(cfg)
		slog.SetDefault(logger)

		// Cancelled on shutdown, which also ends open event streams.
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := newStack(ctx, cfg, logger)
		if err != nil {
			fail("%v", err)
		}
		defer s.Close()

		consumerDone := make(chan error, 1)
		go func() {
			consumerDone <- s.consumer.Run(ctx)
		}()

		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpadapter.NewHandler(s.dispatcher,
				httpadapter.WithStreams(s.streams),
				httpadapter.WithMetrics(s.metrics.Handler()),
				httpadapter.WithLogger(logger),
			),
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(gmp.Version))
			fmt.Printf("Starting GMP Server on %s (redis %s)\n", srv.Addr, cfg.Redis.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case err := <-consumerDone:
			fmt.Printf("Update consumer stopped: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)
			if pending := s.dispatcher.Pending(); len(pending) > 0 {
				logger.Warn("Shutting down with pending actions", "pending", pending)
			}
			cancel()

			// Give outstanding requests a deadline for completion.
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()

			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("GMP Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
}
