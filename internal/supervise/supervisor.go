package supervise

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/config"
)

// Supervisor launches the backend and router children and ties their
// lifetimes together. The router's exit code becomes the supervisor's own
// verdict so orchestrators see child failures directly.
type Supervisor struct {
	cfg        config.Config
	configPath string
	logger     *zap.Logger
}

// New constructs a Supervisor. configPath, when not empty, is handed to
// children through GATEHOUSE_CONFIG so a re-executed router loads the same
// configuration.
func New(cfg config.Config, configPath string, logger *zap.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, configPath: configPath, logger: logger}
}

// ExitError carries a child's exit code to the top of the program.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
}

// Run starts the backend, gates the router on backend readiness, then
// blocks until the router exits or ctx is canceled. A canceled context is a
// requested shutdown and returns nil after both children are down.
func (s *Supervisor) Run(ctx context.Context) error {
	backend, err := Start(Spec{
		Name:    "backend",
		Command: s.cfg.Backend.Command,
		Dir:     s.cfg.Backend.Dir,
		Env:     s.childEnv(),
	}, s.logger)
	if err != nil {
		return fmt.Errorf("start backend: %w", err)
	}
	defer backend.Stop(s.cfg.GracePeriod())

	if err := s.awaitBackend(ctx, backend); err != nil {
		return err
	}
	if ctx.Err() != nil {
		s.logger.Info("shutdown requested before router start")
		return nil
	}

	routerCommand, err := s.routerCommand()
	if err != nil {
		return err
	}
	router, err := Start(Spec{
		Name:    "router",
		Command: routerCommand,
		Env:     s.childEnv(),
	}, s.logger)
	if err != nil {
		return fmt.Errorf("start router: %w", err)
	}
	defer router.Stop(s.cfg.GracePeriod())

	backendDone := backend.Done()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutdown requested")
			return nil
		case <-backendDone:
			// The router keeps answering, serving 502s for API routes,
			// so the deployment stays inspectable while operators react.
			s.logger.Error("backend exited unexpectedly",
				zap.Int("code", backend.ExitCode()),
			)
			backendDone = nil
		case <-router.Done():
			code := normalizeExitCode(router.ExitCode())
			if code == 0 {
				s.logger.Info("router exited cleanly")
				return nil
			}
			return &ExitError{Name: "router", Code: code}
		}
	}
}

// awaitBackend gates router startup on the backend health endpoint. A
// timeout is advisory: the router starts anyway and the deployment comes up
// degraded rather than not at all.
func (s *Supervisor) awaitBackend(ctx context.Context, backend *Process) error {
	check := HealthCheck{
		URL:          s.cfg.BackendHealthURL(),
		Interval:     s.cfg.PollInterval(),
		ProbeTimeout: s.cfg.ProbeTimeout(),
	}

	err := check.AwaitReady(ctx, s.cfg.ReadyTimeout(), backend.Done())
	switch {
	case err == nil:
		backend.MarkReady()
		s.logger.Info("backend ready",
			zap.String("url", check.URL),
			zap.Int("pid", backend.PID()),
		)
		return nil
	case errors.Is(err, ErrReadyTimeout):
		s.logger.Warn("backend not ready within budget, starting router degraded",
			zap.Duration("budget", s.cfg.ReadyTimeout()),
			zap.String("url", check.URL),
		)
		return nil
	case errors.Is(err, ErrProcessExited):
		code := normalizeExitCode(backend.ExitCode())
		s.logger.Error("backend exited during startup", zap.Int("code", code))
		return &ExitError{Name: "backend", Code: code}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		return fmt.Errorf("await backend: %w", err)
	}
}

// routerCommand returns the configured router command, defaulting to
// re-executing this binary with the serve subcommand.
func (s *Supervisor) routerCommand() ([]string, error) {
	if len(s.cfg.Router.Command) > 0 {
		return s.cfg.Router.Command, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate own binary: %w", err)
	}
	return []string{exe, "serve"}, nil
}

func (s *Supervisor) childEnv() []string {
	if s.configPath == "" {
		return nil
	}
	return []string{"GATEHOUSE_CONFIG=" + s.configPath}
}

// normalizeExitCode maps signal deaths, reported as -1, onto a plain
// failure code.
func normalizeExitCode(code int) int {
	if code < 0 {
		return 1
	}
	return code
}
