package endpoint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_ProductionForcesSameOrigin(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{
		Production: true,
		// Override must not be consulted when the production flag is set.
		Override: "http://somewhere-else:9999",
		Page:     PageLocation{Scheme: "https", Hostname: "app.example.com", Port: "443"},
	})

	require.Equal(t, "", cfg.BaseURL)
	require.Equal(t, "/api", cfg.BasePath)
	require.Equal(t, ModeProduction, cfg.Mode)
	require.Equal(t, SourceProduction, cfg.Source)
	require.True(t, cfg.SameOrigin())
}

func TestResolve_OverrideWinsInDevelopment(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{
		Override: "http://api-host:8181",
		Page:     PageLocation{Scheme: "http", Hostname: "localhost", Port: "3737"},
	})

	require.Equal(t, "http://api-host:8181", cfg.BaseURL)
	require.Equal(t, "http://api-host:8181/api", cfg.BasePath)
	require.Equal(t, SourceOverride, cfg.Source)
	require.False(t, cfg.SameOrigin())
}

func TestResolve_OverrideTrailingSlashTrimmed(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{Override: "http://api-host:8181/"})

	require.Equal(t, "http://api-host:8181", cfg.BaseURL)
	require.Equal(t, "http://api-host:8181/api", cfg.BasePath)
}

func TestResolve_SynthesisUsesCanonicalPort(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{
		Page: PageLocation{Scheme: "http", Hostname: "localhost", Port: "3737"},
	})

	require.Equal(t, "http://localhost:3737", cfg.BaseURL)
	require.Equal(t, "http://localhost:3737/api", cfg.BasePath)
	require.Equal(t, SourceSynthesized, cfg.Source)
}

func TestResolve_SynthesisReusesNonDefaultPort(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{
		Page: PageLocation{Scheme: "http", Hostname: "localhost", Port: "5555"},
	})

	require.Equal(t, "http://localhost:5555", cfg.BaseURL)
	require.Equal(t, "http://localhost:5555/api", cfg.BasePath)
}

func TestResolve_SynthesisDefaultsWhenPagePortEmpty(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{
		Page: PageLocation{Scheme: "https", Hostname: "dev.example.com"},
	})

	require.Equal(t, "https://dev.example.com:3737", cfg.BaseURL)
}

func TestResolve_SynthesisHonorsConfiguredDefaultPort(t *testing.T) {
	t.Parallel()

	cfg := Resolve(Environment{
		DefaultPort: 4000,
		Page:        PageLocation{Scheme: "http", Hostname: "localhost", Port: "4000"},
	})

	require.Equal(t, "http://localhost:4000", cfg.BaseURL)
}

func TestResolve_BasePathInvariant(t *testing.T) {
	t.Parallel()

	envs := []Environment{
		{Production: true},
		{Production: true, Override: "http://x:1"},
		{Override: "http://api:8181"},
		{Override: "https://api.example.com"},
		{Page: PageLocation{Scheme: "http", Hostname: "localhost", Port: "3737"}},
		{Page: PageLocation{Scheme: "http", Hostname: "localhost", Port: "5555"}},
		{Page: PageLocation{}},
		{DefaultPort: 9000, Page: PageLocation{Hostname: "box", Port: "9000"}},
	}

	for _, env := range envs {
		cfg := Resolve(env)
		if cfg.BaseURL == "" {
			require.Equal(t, "/api", cfg.BasePath)
		} else {
			require.Equal(t, cfg.BaseURL+"/api", cfg.BasePath)
		}
	}
}

func TestPageFromRequest_UsesHostHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://localhost:5555/runtime/config", nil)

	page := PageFromRequest(req)

	require.Equal(t, "http", page.Scheme)
	require.Equal(t, "localhost", page.Hostname)
	require.Equal(t, "5555", page.Port)
}

func TestPageFromRequest_PrefersForwardingHeaders(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3737/runtime/config", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "app.example.com")

	page := PageFromRequest(req)

	require.Equal(t, "https", page.Scheme)
	require.Equal(t, "app.example.com", page.Hostname)
	require.Equal(t, "", page.Port)
}
