// Package api hosts the HTTP server, middleware, and REST handlers for the
// sourcing service. Notable routes:
//   - GET /healthz and /readyz for orchestrator probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawl and /v1/crawl/batch to ingest product pages.
//   - /v1/products for stored records and rescoring.
//   - POST /v1/mapping/preview for taxonomy mapping without persistence.
//   - POST /v1/export and GET /v1/export/template for bulk-upload workbooks.
package api
