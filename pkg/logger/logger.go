package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the application logger. In prod the output is JSON; otherwise
// a tinted text handler is used. When logFile is non-empty, log lines are
// mirrored to a rotating file as well as stdout.
func New(lvl string, addSource bool, environment string, logFile string) *slog.Logger {

	level := parseLevel(lvl)

	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 14,
			Compress:   true,
		})
	}

	var handler slog.Handler

	if strings.ToLower(environment) == "prod" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     level,
			AddSource: addSource,
		})
	} else {
		handler = tint.NewHandler(out, &tint.Options{
			Level:     level,
			AddSource: addSource,
			NoColor:   logFile != "",
		})
	}

	return slog.New(handler).With(
		slog.String("environment", environment),
	)
}

func parseLevel(level string) slog.Level {

	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
