// Package cmd defines and implements the CLI commands for the gatehouse
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/internal/logging"
	"github.com/gatehouse-dev/gatehouse/internal/supervise"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App bundles the services every command needs: loaded configuration and a
// ready logger.
type App struct {
	Config     config.Config
	ConfigPath string
	Logger     *zap.Logger
}

// Close flushes buffered log output.
func (a *App) Close() {
	_ = a.Logger.Sync()
}

// newApp is the application factory. It is a variable so tests can replace
// it with a factory returning canned configuration.
var newApp = func(_ context.Context) (*App, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("GATEHOUSE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	return &App{Config: cfg, ConfigPath: path, Logger: logger}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Single-port front door for a UI plus API deployment.",
		Long: `gatehouse runs a web UI and its API backend behind one exposed port.
It supervises the backend process, gates startup on its health endpoint,
and routes requests through a declarative table: API surfaces pass through
to the backend, everything else is served from the built UI bundle.`,
		SilenceUsage: true,

		// Runs after flags are parsed but before the subcommand's RunE, so
		// every command sees the same initialized services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appKey).(*App); ok && app != nil {
				app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (YAML), also read from $GATEHOUSE_CONFIG")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRoutesCmd())
	cmd.AddCommand(newResolveCmd())

	return cmd
}

// resolveApp retrieves the App placed in the context by PersistentPreRunE.
func resolveApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey).(*App)
	if !ok || app == nil {
		return nil, errors.New("application services not initialized")
	}
	return app, nil
}

// Execute is the main entry point. It returns the process exit code so
// child exit codes propagate to the orchestrator unchanged.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var exitErr *supervise.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}
