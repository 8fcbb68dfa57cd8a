package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gatehouse-dev/gatehouse/internal/proxy"
)

// newRoutesCmd creates the 'routes' subcommand, which prints the effective
// routing table for inspection or renders it as an nginx server block for
// deployments that front the processes with nginx instead of the built-in
// router.
func newRoutesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the effective routing table",
		Long: `Loads the routing table (built-in defaults or the configured routes
file), validates it, and prints it. The nginx format renders the same
table as a server block so external deployments stay in lockstep with
the built-in router.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoutesCommand(cmd, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, nginx, or json")
	return cmd
}

func runRoutesCommand(cmd *cobra.Command, format string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := app.Config

	rules, err := proxy.LoadRules(cfg.Server.RoutesFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "table":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PREFIX\tTARGET\tPRESERVE\tSTREAMING")
		for _, rule := range rules {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", rule.Prefix, rule.Target, rule.PreservePrefix, rule.Streaming)
		}
		return w.Flush()
	case "nginx":
		opts := proxy.NginxOptions{
			ListenPort:         cfg.Server.Port,
			BackendURL:         cfg.BackendURL(),
			StaticRoot:         cfg.Server.StaticDir,
			ReadTimeoutSeconds: cfg.Proxy.ResponseTimeoutSeconds,
		}
		return proxy.RenderNginx(out, rules, opts)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	default:
		return fmt.Errorf("unknown format %q: want table, nginx, or json", format)
	}
}
