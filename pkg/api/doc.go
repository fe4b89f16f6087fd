// Package api provides the optional HTTP API of tagwatch.
//
// Every endpoint requires an "Authorization: Bearer <token>" header.
//
// Key components:
//   - API: Manages server setup and endpoint registration.
//   - update.Handler: Triggers an update cycle (/v1/update).
//   - metrics.Handler: Serves Prometheus metrics (/v1/metrics).
package api
