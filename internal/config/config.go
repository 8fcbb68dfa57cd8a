// Package config loads and validates gatehouse configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gatehouse-dev/gatehouse/internal/endpoint"
)

// Config captures all service configuration knobs loaded via Viper. Every
// ambient read (env vars, config file) happens here; the rest of the code
// receives literal values.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Router     RouterConfig     `mapstructure:"router"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the externally exposed surface of the router.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	StaticDir  string `mapstructure:"static_dir"`
	RoutesFile string `mapstructure:"routes_file"`
}

// ResolverConfig carries the environment signals the endpoint resolver
// consumes: the production build marker and the optional base URL override
// injected by the orchestration layer.
type ResolverConfig struct {
	Production bool   `mapstructure:"production"`
	APIBase    string `mapstructure:"api_base"`
}

// BackendConfig describes the supervised backend process and its readiness
// probe. The backend must bind loopback; only the router port is exposed.
type BackendConfig struct {
	Command             []string `mapstructure:"command"`
	Dir                 string   `mapstructure:"dir"`
	Host                string   `mapstructure:"host"`
	Port                int      `mapstructure:"port"`
	HealthPath          string   `mapstructure:"health_path"`
	ReadyTimeoutSeconds int      `mapstructure:"ready_timeout_seconds"`
	PollIntervalMs      int      `mapstructure:"poll_interval_ms"`
	ProbeTimeoutSeconds int      `mapstructure:"probe_timeout_seconds"`
}

// RouterConfig describes the router child process. An empty command means
// the supervisor re-executes its own binary with the serve subcommand.
type RouterConfig struct {
	Command []string `mapstructure:"command"`
}

// ProxyConfig tunes the passthrough transport. Timeouts are generous so
// long-running backend operations survive the hop.
type ProxyConfig struct {
	ConnectTimeoutSeconds  int `mapstructure:"connect_timeout_seconds"`
	ResponseTimeoutSeconds int `mapstructure:"response_timeout_seconds"`
	IdleTimeoutSeconds     int `mapstructure:"idle_timeout_seconds"`
}

// SupervisorConfig governs child shutdown behavior.
type SupervisorConfig struct {
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// TelemetryConfig controls the Prometheus listener. It binds loopback only;
// an empty address disables it.
type TelemetryConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional file, and GATEHOUSE_*
// environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", endpoint.CanonicalPort)
	v.SetDefault("server.static_dir", "ui/dist")
	v.SetDefault("server.routes_file", "")
	v.SetDefault("resolver.production", false)
	v.SetDefault("resolver.api_base", "")
	v.SetDefault("backend.command", []string{
		"uvicorn", "main:app", "--host", "127.0.0.1", "--port", "8000",
	})
	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 8000)
	v.SetDefault("backend.health_path", "/health")
	v.SetDefault("backend.ready_timeout_seconds", 30)
	v.SetDefault("backend.poll_interval_ms", 1000)
	v.SetDefault("backend.probe_timeout_seconds", 2)
	v.SetDefault("router.command", []string{})
	v.SetDefault("proxy.connect_timeout_seconds", 60)
	v.SetDefault("proxy.response_timeout_seconds", 300)
	v.SetDefault("proxy.idle_timeout_seconds", 90)
	v.SetDefault("supervisor.grace_period_seconds", 10)
	v.SetDefault("telemetry.addr", "127.0.0.1:9091")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.StaticDir == "" {
		return fmt.Errorf("server.static_dir must be set")
	}
	if len(c.Backend.Command) == 0 {
		return fmt.Errorf("backend.command must not be empty")
	}
	if c.Backend.Port <= 0 {
		return fmt.Errorf("backend.port must be > 0")
	}
	if !strings.HasPrefix(c.Backend.HealthPath, "/") {
		return fmt.Errorf("backend.health_path must start with /")
	}
	if c.Backend.PollIntervalMs <= 0 {
		return fmt.Errorf("backend.poll_interval_ms must be > 0")
	}
	if c.Backend.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("backend.probe_timeout_seconds must be > 0")
	}
	if c.Proxy.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("proxy.connect_timeout_seconds must be > 0")
	}
	if c.Proxy.ResponseTimeoutSeconds <= 0 {
		return fmt.Errorf("proxy.response_timeout_seconds must be > 0")
	}
	if c.Supervisor.GracePeriodSeconds <= 0 {
		return fmt.Errorf("supervisor.grace_period_seconds must be > 0")
	}
	return nil
}

// BackendURL returns the loopback base URL of the backend process.
func (c Config) BackendURL() string {
	return fmt.Sprintf("http://%s:%d", c.Backend.Host, c.Backend.Port)
}

// BackendHealthURL returns the URL the readiness probe polls.
func (c Config) BackendHealthURL() string {
	return c.BackendURL() + c.Backend.HealthPath
}

// ResolverEnvironment assembles the injected environment for endpoint
// resolution, pairing the config-level signals with a page location supplied
// by the caller.
func (c Config) ResolverEnvironment(page endpoint.PageLocation) endpoint.Environment {
	return endpoint.Environment{
		Production:  c.Resolver.Production,
		Override:    c.Resolver.APIBase,
		DefaultPort: c.Server.Port,
		Page:        page,
	}
}

// ReadyTimeout converts the readiness budget into a duration.
func (c Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Backend.ReadyTimeoutSeconds) * time.Second
}

// PollInterval converts the probe cadence into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Backend.PollIntervalMs) * time.Millisecond
}

// ProbeTimeout converts the per-probe budget into a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Backend.ProbeTimeoutSeconds) * time.Second
}

// ConnectTimeout converts the upstream dial budget into a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Proxy.ConnectTimeoutSeconds) * time.Second
}

// ResponseTimeout converts the upstream response-header budget into a
// duration.
func (c Config) ResponseTimeout() time.Duration {
	return time.Duration(c.Proxy.ResponseTimeoutSeconds) * time.Second
}

// IdleTimeout converts the upstream idle-connection budget into a duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Proxy.IdleTimeoutSeconds) * time.Second
}

// GracePeriod converts the shutdown grace window into a duration.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.Supervisor.GracePeriodSeconds) * time.Second
}
