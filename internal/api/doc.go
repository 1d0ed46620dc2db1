// Package api hosts the HTTP server, middleware, and REST handlers.
// Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /api/titles for enrichment job submission.
//   - GET /api/stream/{job_id} for the server-sent-events result stream.
//   - GET /api/title/{title_id} for persisted title lookups.
package api
