// Package httpserver exposes the operational HTTP surface of the monitor:
// a liveness endpoint and the metrics snapshot. It wraps http.Server with
// address validation and graceful shutdown.
package httpserver
