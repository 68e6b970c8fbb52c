// Package metrics collects in-process monitoring statistics: per-site check
// counts, status breakdowns, smoothed response times, and round summaries.
// Events are emitted non-blocking from the monitoring path and aggregated by
// a single collector goroutine; a JSON snapshot is served over HTTP.
package metrics
