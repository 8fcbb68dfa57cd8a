package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gatehouse-dev/gatehouse/internal/supervise"
)

// newRunCmd creates the 'run' subcommand, the container entrypoint. It
// supervises both child processes and exits with the router's exit code.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the backend and router under supervision",
		Long: `Starts the backend process, waits for its health endpoint to answer,
then starts the router. The readiness wait is advisory: when the budget
elapses the router starts anyway and serves 502 on API routes until the
backend comes up. The process exits when the router exits, with the
router's exit code.`,

		RunE: runRunCommand,
	}
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	sup := supervise.New(app.Config, app.ConfigPath, app.Logger.Named("supervisor"))
	return sup.Run(cmd.Context())
}
