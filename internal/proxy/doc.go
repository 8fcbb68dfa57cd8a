// Package proxy implements the public face of the deployment: a routing
// table evaluated first-match-wins, a reverse proxy for backend rules, and
// an index-fallback file server for the UI bundle. Notable routes in the
// default table:
//   - /health, /docs, /openapi.json pass through to the backend.
//   - /api/ passes through with the prefix preserved and streaming enabled.
//   - GET /runtime/config reports the resolved API endpoint for the caller.
//   - everything else is served from the UI bundle, unknown paths get
//     index.html so client-side routing works.
//
// The same table can be rendered as an nginx server block for deployments
// that front the container with their own proxy.
package proxy
