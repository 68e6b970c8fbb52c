// Package logger constructs the application slog.Logger: JSON output in
// prod, a tinted text handler in dev, with an optional application log file.
package logger
