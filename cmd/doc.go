// Package cmd defines the mapwatch command line.
//
// Architecture overview:
//   - Check: watcher.Checker fetches the configured page (colly, or chromedp in headless mode), extracts the
//     four-digit map version, compares it with the version stored for today or yesterday, stores today's
//     observation, and on a transition appends a change record and notifies subscribers (email API, Pub/Sub).
//   - Storage: versions and changes live in a namespaced key-value store backed by SQLite (default), Postgres,
//     GCS, or memory. Keys are UTC dates; the "latest" key in the changes namespace points at the newest change.
//   - HTTP API: internal/api.Server serves the read-only summary page, the JSON endpoints under /v1, probes,
//     and /metrics. Nothing on the request path writes to the store.
//
// Operational notes:
//   - "mapwatch check" runs one pass and exits non-zero on failure, for external cron.
//   - "mapwatch serve" runs the API and, with schedule.enabled, an in-process daily trigger at schedule.at (UTC).
//   - Configure via file (--config) or MAPWATCH_* env vars, e.g. MAPWATCH_SOURCE_URL,
//     MAPWATCH_STORAGE_BACKEND, MAPWATCH_NOTIFY_EMAIL_API_KEY. PORT overrides the listen port on Cloud Run.
package cmd
