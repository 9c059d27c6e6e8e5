// Package main hosts the sourcing service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, crawl, product, mapping preview and export endpoints.
//     Requests are decoded, handed to the pipeline or export service, and answered with tagged JSON results or an
//     xlsx attachment.
//   - Crawl pipeline: each request waits on a per-host token bucket, performs a probe fetch via the Colly-based
//     fetcher, optionally promotes to a headless Chromedp fetch when the heuristic detector deems it necessary, then
//     extracts the product with site-specific rules and generic metadata fallbacks.
//   - Mapping & scoring: a cached taxonomy snapshot maps category, origin and keywords; sale price is derived from the
//     target margin; two rubrics produce the readiness score that gates export.
//   - Persistence & fanout: records are upserted by a URL-derived key into memory or Postgres (schema applied with
//     golang-migrate). Raw markup and export artifacts optionally land in local disk or GCS, and a Pub/Sub
//     notification is published per crawl when enabled.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: single crawls run on the request goroutine; batch crawls, batch rescoring and list exports
//     fan out with a bounded errgroup. Headless fetches have their own semaphore inside the Chromedp fetcher.
//   - Only the fetch carries a hard timeout; the API adds a per-request deadline for /v1 routes.
//
// Quick checklist:
//   - Configure env vars: SOURCER_SERVER_PORT or PORT, SOURCER_STORAGE_BACKEND=memory|postgres, SOURCER_DB_DSN,
//     SOURCER_STORAGE_BLOB=none|local|gcs, SOURCER_PUBSUB_ENABLED, SOURCER_AUTH_ENABLED and SOURCER_AUTH_API_KEY.
//   - Run locally: go run ./cmd/sourcer -config config.yaml (or rely solely on env overrides).
package main
