package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/angeloszaimis/site-guard/internal/check"
	"github.com/angeloszaimis/site-guard/internal/metrics"
)

// roundFaultPause is how long the loop waits after an orchestration-level
// fault before attempting the next round.
const roundFaultPause = 5 * time.Second

// Runner drives the outer monitoring loop: run a round, log the summary,
// sleep the configured interval, repeat. A stop request (context
// cancellation) takes effect both before a round starts and before the
// sleep, and the in-flight round is drained before Run returns.
type Runner struct {
	service  *Service
	sites    []*check.Site
	interval time.Duration
	logger   *slog.Logger
}

func NewRunner(service *Service, sites []*check.Site, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		service:  service,
		sites:    sites,
		interval: interval,
		logger:   logger,
	}
}

// Run loops monitoring rounds until ctx is cancelled and returns the
// cancellation cause. An unexpected fault escaping a round is logged and
// followed by a short fixed pause instead of terminating the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting site monitoring",
		slog.Int("sites", len(r.sites)),
		slog.Duration("interval", r.interval))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		passed, failed, err := r.runRound(ctx)
		if err != nil {
			r.logger.Error("monitoring round failed", slog.Any("err", err))
			if err := sleepContext(ctx, roundFaultPause); err != nil {
				return err
			}
			continue
		}

		r.logger.Info("monitoring round completed",
			slog.Int("passed", passed),
			slog.Int("failed", failed))

		if r.service.collector != nil {
			r.service.collector.Emit(metrics.Event{
				Type:      metrics.EventRoundCompleted,
				Timestamp: time.Now(),
				Passed:    passed,
				Failed:    failed,
			})
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sleepContext(ctx, r.interval); err != nil {
			return err
		}
	}
}

// runRound consumes one full round and tallies the pass/fail counts. A
// panic out of the fan-out machinery is converted into an error so the
// caller can pause and continue.
func (r *Runner) runRound(ctx context.Context) (passed, failed int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("monitoring round panicked: %v", rec)
		}
	}()

	r.logger.Info("starting monitoring round")

	for result := range r.service.RunRound(ctx, r.sites) {
		if result.IsSuccess() {
			passed++
			r.logger.Info("PASS",
				slog.String("url", result.URL),
				slog.Int64("response_time_ms", responseMillis(result)))
		} else {
			failed++
			r.logger.Warn("FAIL",
				slog.String("url", result.URL),
				slog.String("status", result.Status.String()),
				slog.String("error", result.ErrorMessage))
		}
	}

	return passed, failed, nil
}

func responseMillis(result *check.Result) int64 {
	if result.ResponseTimeMs == nil {
		return 0
	}
	return *result.ResponseTimeMs
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
