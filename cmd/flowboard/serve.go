package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/flowboard"
	"github.com/aretw0/flowboard/internal/metrics"
	"github.com/aretw0/flowboard/internal/presentation/tui"
	httpAdapter "github.com/aretw0/flowboard/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flow HTTP server",
	Long: `Serves the flow-agents endpoints over the configured storage:

  GET    /flow-agents                          list agents with a stored flow
  GET    /flow-agents/{agentId}                load an agent's flow
  PATCH  /flow-agents/{agentId}/flow           replace the flow (validated)
  DELETE /flow-agents/{agentId}/flow           delete the flow
  POST   /flow-agents/{agentId}/flow/validate  validate without saving
  GET    /flow-agents/{agentId}/flow/graph     Mermaid rendering
  GET    /flow-agents/{agentId}/events         server-sent change events`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.Listen = addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		sessions, backend, err := openSessions(ctx, cfg, logger, m)
		if err != nil {
			return err
		}
		defer backend.Close()

		srv := &http.Server{
			Addr: cfg.Listen,
			Handler: httpAdapter.NewHandler(sessions,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithMetrics(m),
				httpAdapter.WithVersion(flowboard.Version),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		tui.PrintBanner(cmd.ErrOrStderr())
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("Starting Flowboard Server", "address", srv.Addr, "storage", cfg.Storage.Backend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Start shutdown...")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("Flowboard Server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on, overriding the configuration")
}
