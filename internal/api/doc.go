// Package api hosts the read-only HTTP interface. Routes:
//   - GET / renders a summary of the current version and latest change.
//   - GET /v1 renders the API index.
//   - GET /v1/current and /v1/history return JSON.
//   - GET /healthz and /readyz for probes, /metrics for Prometheus scraping.
//
// Every other path or method answers 404 with {"error":"Not found"}.
package api
