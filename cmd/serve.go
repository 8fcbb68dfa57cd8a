package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/proxy"
	"github.com/gatehouse-dev/gatehouse/internal/telemetry"
)

// newServeCmd creates the 'serve' subcommand. Under normal operation the
// supervisor re-executes this binary with 'serve' as the router child, but
// it also runs standalone against an already-running backend.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routing table on the public port",
		Long: `Listens on the public port and routes requests through the table:
backend rules are reverse proxied to the API process, the rest is served
from the built UI bundle with index fallback. Prometheus metrics are
exposed on a separate loopback listener.`,

		RunE: runServeCommand,
	}
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := app.Config
	logger := app.Logger.Named("router")

	telemetry.Init()

	rules, err := proxy.LoadRules(cfg.Server.RoutesFile)
	if err != nil {
		return err
	}

	server, err := proxy.NewServer(cfg, rules, logger)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Telemetry.Addr != "" {
		go serveTelemetry(cfg.Telemetry.Addr, logger)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("router listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("static_dir", cfg.Server.StaticDir),
			zap.String("backend", cfg.BackendURL()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("router server: %w", err)
	case <-cmd.Context().Done():
	}

	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// serveTelemetry exposes /metrics on a loopback-only listener so the public
// port stays the deployment's single exposed surface.
func serveTelemetry(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("telemetry listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("telemetry listener error", zap.Error(err))
	}
}
