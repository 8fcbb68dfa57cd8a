// Package supervise runs the deployment's two children, the backend API
// process and the router, and ties their lifetimes together.
//
// Startup is ordered: the backend launches first and the router is gated on
// the backend's health endpoint answering 2xx. The readiness budget is
// advisory. When it runs out the router starts anyway and the deployment
// comes up degraded, answering 502 on API routes until the backend finishes
// warming.
//
// Every child runs in its own process group. Shutdown sends SIGTERM to the
// group, waits out a grace period, then SIGKILLs, so helper processes
// spawned by a child never outlive the supervisor. The router's exit code
// is propagated as the supervisor's own so orchestrators restart the
// container on router failure.
package supervise
