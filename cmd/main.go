package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/site-guard/config"
	"github.com/angeloszaimis/site-guard/internal/check"
	"github.com/angeloszaimis/site-guard/internal/httpserver"
	"github.com/angeloszaimis/site-guard/internal/metrics"
	"github.com/angeloszaimis/site-guard/internal/monitor"
	"github.com/angeloszaimis/site-guard/internal/sink"
	"github.com/angeloszaimis/site-guard/pkg/logger"
)

func main() {
	flags := ParseFlags()

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		slog.Error("failed to load config",
			slog.String("path", flags.ConfigFile),
			slog.Any("err", err))
		os.Exit(1)
	}

	if flags.IntervalSeconds > 0 {
		cfg = cfg.WithCheckInterval(time.Duration(flags.IntervalSeconds) * time.Second)
	}

	logLevel := cfg.Logging.Level
	if flags.Verbose {
		logLevel = config.LogLevelDebug
	}
	log := logger.New(logLevel, true, cfg.Logging.Environment, flags.LogFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	resultSink := sink.NewFileSink(cfg.LogFile)
	defer func() {
		if err := resultSink.Close(); err != nil {
			log.Error("failed to close result log", slog.Any("err", err))
		}
	}()

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	var srv *httpserver.Server
	if cfg.Server.Enabled {
		srv, err = httpserver.New(cfg.Server.Address, collector)
		if err != nil {
			log.Error("failed to create ops server", slog.Any("err", err))
			os.Exit(1)
		}
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("ops server error", slog.Any("err", err))
			}
		}()
	}

	runner, err := buildRunner(cfg, resultSink, collector, log)
	if err != nil {
		log.Error("failed to build site specifications", slog.Any("err", err))
		os.Exit(1)
	}

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("monitoring stopped by user")
	} else if err != nil {
		log.Error("monitoring stopped unexpectedly", slog.Any("err", err))
	}

	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("error during ops server shutdown", slog.Any("err", err))
		}
	}
}

// buildRunner assembles the monitoring pipeline from a validated config.
func buildRunner(cfg *config.Config, resultSink sink.Sink, collector *metrics.Collector, log *slog.Logger) (*monitor.Runner, error) {
	sites, err := cfg.BuildSites()
	if err != nil {
		return nil, err
	}

	checker := check.NewHTTPChecker(check.NewPooledClient(), log)
	service := monitor.NewService(checker, resultSink, collector, log)

	return monitor.NewRunner(service, sites, cfg.CheckInterval, log), nil
}
