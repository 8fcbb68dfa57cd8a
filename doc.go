// Package main hosts the gatehouse executable.
//
// Architecture overview:
//   - Supervision: 'gatehouse run' is the container entrypoint. internal/supervise starts the backend API
//     process, polls its health endpoint until ready (the budget is advisory: on expiry the router starts
//     anyway, degraded), then re-executes this binary as 'gatehouse serve'. Child processes run in their own
//     process groups so SIGTERM escalation to SIGKILL after the grace period cannot leave orphans. The
//     supervisor exits with the router's exit code, or the backend's when it dies before becoming ready.
//   - Routing: 'gatehouse serve' listens on the single public port and walks an ordered prefix table
//     (internal/proxy). Backend rules are reverse proxied to the API process with forwarding headers and
//     optional prefix stripping; streaming rules flush unbuffered. Everything else falls through to the built
//     UI bundle with index fallback so client-side routes deep-link correctly.
//   - Endpoint resolution: internal/endpoint computes where the UI reaches the API from the production flag,
//     an explicit base override, and the page origin. The router serves the result at /runtime/config; the
//     'resolve' subcommand prints it for debugging, including the bootstrap snippet the bundle consumes.
//   - Configuration & plumbing: Viper populates config from env/files (GATEHOUSE_ prefix); zap provides
//     structured logging; Prometheus counters and histograms track proxied traffic on a loopback /metrics
//     listener so the public port stays the deployment's only exposed surface.
//
// Operational notes:
//   - Concurrency model: one goroutine per in-flight proxied request (net/http's model); the supervisor runs
//     a single event loop over child exit and context cancellation. Shutdown is coordinated via context
//     cancellation propagated from main through the supervisor to both children.
//   - Degraded start: a backend that misses its readiness budget does not block the router; the UI loads and
//     surfaces backend errors itself. A backend crash after readiness is logged and left to the operator, on
//     the assumption the orchestrator restarts the whole container rather than one process inside it.
//   - Observability: zap logs carry request IDs and child PIDs at key transitions; Prometheus tracks per-route
//     request counts, latencies, upstream failures, and SPA fallbacks. Tracing is not wired in.
//
// Quick checklist:
//   - Configure env vars: GATEHOUSE_SERVER_PORT, GATEHOUSE_SERVER_STATIC_DIR, GATEHOUSE_RESOLVER_PRODUCTION,
//     GATEHOUSE_RESOLVER_API_BASE, GATEHOUSE_BACKEND_COMMAND, GATEHOUSE_BACKEND_PORT, and the readiness knobs
//     (GATEHOUSE_BACKEND_READY_TIMEOUT_SECONDS, GATEHOUSE_BACKEND_POLL_INTERVAL_MS) when the defaults fit
//     poorly.
//   - Run locally: go run . serve --config config.yaml against an already-running backend, or go run . run to
//     supervise both processes.
//   - Containers: expose only the public port, run 'gatehouse run' as PID 1, and send SIGTERM to drain; both
//     children are terminated within the configured grace period.
package main
