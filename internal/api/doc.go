// Package api hosts the optional status HTTP server for a scrape run. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for the current run snapshot.
package api
