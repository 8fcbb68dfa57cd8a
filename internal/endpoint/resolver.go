// Package endpoint decides where the browser UI reaches the API.
package endpoint

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// CanonicalPort is the single port the container exposes externally. It is
// both the default listen port of the router and the port the resolver pairs
// with the page host when no better signal exists.
const CanonicalPort = 3737

// APIPrefix is the path prefix the backend serves its API under. The base
// path is always derived from it, never configured separately.
const APIPrefix = "/api"

// Mode is the deployment mode derived from environment signals.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Source records which resolution rule produced a Config.
type Source string

const (
	// SourceProduction means same-origin relative addressing was forced by
	// the production build flag.
	SourceProduction Source = "production"
	// SourceOverride means an explicit base URL override was honored.
	SourceOverride Source = "override"
	// SourceSynthesized means the base URL was assembled from the page
	// location and the canonical port.
	SourceSynthesized Source = "synthesized"
)

// PageLocation is the origin the UI was loaded from, as seen by the browser.
// Port may be empty when the page was served on the scheme default.
type PageLocation struct {
	Scheme   string
	Hostname string
	Port     string
}

// Environment carries every signal resolution consults. Callers populate it
// at one boundary (config, CLI flags, or an inbound request) so Resolve
// itself never reads ambient state.
type Environment struct {
	// Production marks a production build; it wins over every other signal.
	Production bool
	// Override is an explicit API base URL injected by the orchestration
	// layer. Ignored when Production is set.
	Override string
	// DefaultPort is the canonical external port; zero means CanonicalPort.
	DefaultPort int
	// Page is the browser origin used for synthesis in development.
	Page PageLocation
}

// Config is the resolved endpoint configuration the UI uses for every API
// call. An empty BaseURL means same-origin relative addressing.
type Config struct {
	BaseURL  string `json:"base_url"`
	BasePath string `json:"base_path"`
	Mode     Mode   `json:"mode"`
	Source   Source `json:"source"`
}

// Resolve computes the endpoint configuration for the given environment.
// Resolution never fails: absent signals fall through to a synthesized
// default. First match wins:
//
//  1. Production build → same-origin ("" base URL). A single exposed port
//     serves UI and API through the router, so absolute URLs would pin the
//     bundle to one host.
//  2. Explicit override → the literal override value.
//  3. Otherwise the page's scheme and hostname paired with the canonical
//     port, unless the page itself was loaded from a non-default port, in
//     which case that port is reused.
//
// BasePath is always BaseURL + "/api".
func Resolve(env Environment) Config {
	if env.Production {
		return Config{
			BaseURL:  "",
			BasePath: APIPrefix,
			Mode:     ModeProduction,
			Source:   SourceProduction,
		}
	}

	if override := strings.TrimRight(strings.TrimSpace(env.Override), "/"); override != "" {
		return Config{
			BaseURL:  override,
			BasePath: override + APIPrefix,
			Mode:     ModeDevelopment,
			Source:   SourceOverride,
		}
	}

	base := synthesize(env)
	return Config{
		BaseURL:  base,
		BasePath: base + APIPrefix,
		Mode:     ModeDevelopment,
		Source:   SourceSynthesized,
	}
}

// SameOrigin reports whether the configuration uses same-origin relative
// addressing, which obligates the router to carry an /api passthrough rule.
func (c Config) SameOrigin() bool {
	return c.BaseURL == ""
}

func synthesize(env Environment) string {
	scheme := env.Page.Scheme
	if scheme == "" {
		scheme = "http"
	}
	hostname := env.Page.Hostname
	if hostname == "" {
		hostname = "localhost"
	}
	port := strconv.Itoa(defaultPort(env))
	if env.Page.Port != "" && env.Page.Port != port {
		port = env.Page.Port
	}
	return fmt.Sprintf("%s://%s:%s", scheme, hostname, port)
}

func defaultPort(env Environment) int {
	if env.DefaultPort > 0 {
		return env.DefaultPort
	}
	return CanonicalPort
}

// PageFromRequest derives the page location from an inbound request. For
// same-origin UI loads the request origin is the browser origin, so the
// router can evaluate resolution on behalf of the page. Forwarding headers
// from an outer proxy take precedence over the transport-level values.
func PageFromRequest(r *http.Request) PageLocation {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}

	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}

	hostname, port, err := net.SplitHostPort(host)
	if err != nil {
		// No port component; the page was served on the scheme default.
		hostname = host
		port = ""
	}
	return PageLocation{Scheme: scheme, Hostname: hostname, Port: port}
}
