package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/gatehouse-dev/gatehouse/internal/endpoint"
)

// newResolveCmd creates the 'resolve' subcommand, a debugging aid that runs
// endpoint resolution exactly as the router does for /runtime/config and
// prints the result.
func newResolveCmd() *cobra.Command {
	var (
		production bool
		override   string
		page       string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the API endpoint for a page origin",
		Long: `Runs endpoint resolution with the configured signals and prints the
result. Flags override the configured values, and --page supplies the
browser origin used for synthesis in development. The js format emits
the same bootstrap snippet the UI bundle consumes.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolveCommand(cmd, production, override, page, format)
		},
	}
	cmd.Flags().BoolVar(&production, "production", false, "force production same-origin resolution")
	cmd.Flags().StringVar(&override, "override", "", "explicit API base URL")
	cmd.Flags().StringVar(&page, "page", "", "page origin URL, e.g. http://workstation:3737")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or js")
	return cmd
}

func runResolveCommand(cmd *cobra.Command, production bool, override, page, format string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	loc, err := parsePage(page)
	if err != nil {
		return err
	}

	env := app.Config.ResolverEnvironment(loc)
	if cmd.Flags().Changed("production") {
		env.Production = production
	}
	if cmd.Flags().Changed("override") {
		env.Override = override
	}

	resolved := endpoint.Resolve(env)

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resolved)
	case "js":
		data, err := json.Marshal(resolved)
		if err != nil {
			return fmt.Errorf("encode endpoint config: %w", err)
		}
		_, err = fmt.Fprintf(out, "window.__RUNTIME_CONFIG__ = %s;\n", data)
		return err
	default:
		return fmt.Errorf("unknown format %q: want json or js", format)
	}
}

// parsePage turns a page origin URL into the location triple resolution
// consults. An empty value means no page signal, which synthesis fills with
// localhost defaults.
func parsePage(page string) (endpoint.PageLocation, error) {
	if page == "" {
		return endpoint.PageLocation{}, nil
	}
	u, err := url.Parse(page)
	if err != nil {
		return endpoint.PageLocation{}, fmt.Errorf("parse page origin %q: %w", page, err)
	}
	return endpoint.PageLocation{
		Scheme:   u.Scheme,
		Hostname: u.Hostname(),
		Port:     u.Port(),
	}, nil
}
