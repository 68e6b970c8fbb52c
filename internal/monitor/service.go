package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/site-guard/internal/check"
	"github.com/angeloszaimis/site-guard/internal/metrics"
	"github.com/angeloszaimis/site-guard/internal/sink"
)

// Service coordinates one monitoring round at a time over a checker and a
// sink. The collector is optional; a nil collector disables metric events.
type Service struct {
	checker   check.Checker
	sink      sink.Sink
	collector *metrics.Collector
	logger    *slog.Logger
}

func NewService(checker check.Checker, resultSink sink.Sink, collector *metrics.Collector, logger *slog.Logger) *Service {
	return &Service{
		checker:   checker,
		sink:      resultSink,
		collector: collector,
		logger:    logger,
	}
}

// RunRound checks every site concurrently and returns a channel of results
// in completion order. Each result is recorded in the sink before it is
// yielded; sink failures are logged and do not block other checks. The
// channel closes only after every in-flight check has finished, so on
// cancellation the caller can treat channel closure as the drain
// acknowledgment. No result is yielded after the context is cancelled.
func (s *Service) RunRound(ctx context.Context, sites []*check.Site) <-chan *check.Result {
	out := make(chan *check.Result)

	go func() {
		defer close(out)

		if len(sites) == 0 {
			return
		}

		completed := make(chan *check.Result, len(sites))

		var wg sync.WaitGroup
		for _, site := range sites {
			wg.Add(1)
			go func(site *check.Site) {
				defer wg.Done()
				defer func() {
					// A panicking check loses its outcome for this
					// round; the round itself continues.
					if rec := recover(); rec != nil {
						s.logger.Error("site check panicked",
							slog.String("site", site.Name()),
							slog.Any("panic", rec))
					}
				}()

				result, err := s.checker.CheckSite(ctx, site)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					s.logger.Error("site check failed unexpectedly",
						slog.String("site", site.Name()),
						slog.Any("err", err))
					return
				}
				completed <- result
			}(site)
		}

		go func() {
			wg.Wait()
			close(completed)
		}()

		for result := range completed {
			if ctx.Err() != nil {
				// Keep draining so every goroutine is accounted for,
				// but yield nothing past the cancellation point.
				continue
			}

			if err := s.sink.Record(result); err != nil {
				s.logger.Error("failed to record result",
					slog.String("url", result.URL),
					slog.Any("err", err))
			}

			s.emit(result)

			select {
			case out <- result:
			case <-ctx.Done():
			}
		}
	}()

	return out
}

func (s *Service) emit(result *check.Result) {
	if s.collector == nil {
		return
	}

	var elapsed time.Duration
	if result.ResponseTimeMs != nil {
		elapsed = time.Duration(*result.ResponseTimeMs) * time.Millisecond
	}

	s.collector.Emit(metrics.Event{
		Type:      metrics.EventCheckCompleted,
		Timestamp: time.Now(),
		Site:      result.Name,
		Status:    string(result.Status),
		Duration:  elapsed,
	})
}
