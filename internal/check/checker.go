package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angeloszaimis/site-guard/internal/content"
	"github.com/angeloszaimis/site-guard/internal/retry"
)

// Checker performs one full check of a site, retries included.
// Production and test doubles both implement it.
type Checker interface {
	CheckSite(ctx context.Context, site *Site) (*Result, error)
}

// HTTPChecker checks sites over HTTP using a shared pooled transport.
// The per-request timeout comes from each site, so no client-level
// timeout is set.
type HTTPChecker struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPChecker creates a checker. A nil client gets the default pooled
// client.
func NewHTTPChecker(client *http.Client, logger *slog.Logger) *HTTPChecker {
	if client == nil {
		client = NewPooledClient()
	}
	return &HTTPChecker{
		client: client,
		logger: logger,
	}
}

// NewPooledClient returns an HTTP client with a connection pool shared by
// all concurrent site checks in the process.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}

// attemptFailure is a transport- or status-level failure of one attempt.
// Content mismatches never become attemptFailures; they are terminal
// outcomes.
type attemptFailure struct {
	kind       retry.FailureKind
	statusCode int
	err        error
}

// CheckSite runs the attempt loop for one site and returns its final typed
// result. The only error returned is a context cancellation; every other
// outcome is a classified Result.
func (c *HTTPChecker) CheckSite(ctx context.Context, site *Site) (*Result, error) {
	policy := site.Retry()
	var lastFailure *attemptFailure
	attempts := 0

	for attempt := 1; attempt <= policy.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts = attempt

		if attempt > 1 {
			c.logger.Info("retrying site check",
				slog.String("site", site.Name()),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", policy.MaxAttempts()))
		}

		result, failure, err := c.performAttempt(ctx, site)
		if err != nil {
			return nil, err
		}

		if result != nil {
			kind, transient := outcomeFailureKind(result.Status)
			if transient && policy.ShouldRetry(kind, 0, attempt) {
				if err := c.backoff(ctx, site, policy.DelayForAttempt(attempt), result.Status.String()); err != nil {
					return nil, err
				}
				continue
			}

			if result.IsSuccess() && attempt > 1 {
				c.logger.Info("site check succeeded after retries",
					slog.String("site", site.Name()),
					slog.Int("attempts", attempt))
			}
			return result, nil
		}

		lastFailure = failure
		if policy.ShouldRetry(failure.kind, failure.statusCode, attempt) {
			if err := c.backoff(ctx, site, policy.DelayForAttempt(attempt), failure.err.Error()); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	c.logger.Error("site check failed",
		slog.String("site", site.Name()),
		slog.Int("attempts", attempts),
		slog.Any("err", lastFailure.err))

	return c.errorResult(site, lastFailure, attempts), nil
}

// performAttempt issues a single HTTP GET. Timeout and connection failures
// come back as classified results carrying the measured elapsed time; HTTP
// statuses >= 400 come back as attemptFailures for the retry decision. A
// non-nil error is returned only for caller-initiated cancellation.
func (c *HTTPChecker) performAttempt(ctx context.Context, site *Site) (*Result, *attemptFailure, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, site.Timeout())
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, site.URL().String(), nil)
	if err != nil {
		// Pre-request failure: nothing was measured.
		return &Result{
			Name:           site.Name(),
			URL:            site.URL().String(),
			Status:         StatusConnectionError,
			ResponseTimeMs: millis(0),
			Timestamp:      start.UTC(),
			ErrorMessage:   fmt.Sprintf("building request: %v", err),
		}, nil, nil
	}

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		elapsed := time.Since(start)
		status, message := classifyTransportError(err, site.Timeout())
		return &Result{
			Name:           site.Name(),
			URL:            site.URL().String(),
			Status:         status,
			ResponseTimeMs: millis(elapsed),
			Timestamp:      start.UTC(),
			ErrorMessage:   message,
		}, nil, nil
	}
	defer res.Body.Close()

	elapsed := time.Since(start)

	if res.StatusCode >= 400 {
		// Drain so the pooled connection can be reused.
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &attemptFailure{
			kind:       retry.FailureHTTPStatus,
			statusCode: res.StatusCode,
			err:        fmt.Errorf("HTTP error %d: %s", res.StatusCode, http.StatusText(res.StatusCode)),
		}, nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		status, message := classifyTransportError(err, site.Timeout())
		return &Result{
			Name:           site.Name(),
			URL:            site.URL().String(),
			Status:         status,
			ResponseTimeMs: millis(time.Since(start)),
			Timestamp:      start.UTC(),
			ErrorMessage:   message,
		}, nil, nil
	}

	passed, failedPatterns := content.CheckRequirements(site.Requirements(), string(body), site.RequireAll())

	result := &Result{
		Name:           site.Name(),
		URL:            site.URL().String(),
		Status:         StatusSuccess,
		ResponseTimeMs: millis(elapsed),
		Timestamp:      start.UTC(),
	}
	if !passed {
		result.Status = StatusContentError
		result.ErrorMessage = "content requirements not met"
		result.FailedRequirements = failedPatterns
	}

	return result, nil, nil
}

// backoff sleeps for the computed delay, aborting on cancellation.
func (c *HTTPChecker) backoff(ctx context.Context, site *Site, delay time.Duration, reason string) error {
	c.logger.Warn("retrying site after delay",
		slog.String("site", site.Name()),
		slog.Duration("delay", delay),
		slog.String("reason", reason))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorResult builds the terminal FAILED result after the attempt budget is
// exhausted through the status-failure path. Timing is not meaningful here,
// so the response time is reported as zero.
func (c *HTTPChecker) errorResult(site *Site, failure *attemptFailure, attempts int) *Result {
	status := StatusConnectionError
	message := fmt.Sprintf("check failed after %d attempts", attempts)

	if failure != nil {
		switch failure.kind {
		case retry.FailureHTTPStatus:
			switch {
			case failure.statusCode == http.StatusNotFound:
				status = StatusNotFound
			case failure.statusCode >= 500 || site.Retry().RetryableStatus(failure.statusCode):
				status = StatusServerError
			default:
				status = StatusConnectionError
			}
			message = fmt.Sprintf("HTTP %d after %d attempts: %v", failure.statusCode, attempts, failure.err)
		case retry.FailureTimeout:
			status = StatusTimeoutError
			message = fmt.Sprintf("timeout after %d attempts", attempts)
		case retry.FailureConnection:
			status = StatusConnectionError
			message = fmt.Sprintf("connection error after %d attempts: %v", attempts, failure.err)
		}
	}

	return &Result{
		Name:           site.Name(),
		URL:            site.URL().String(),
		Status:         status,
		ResponseTimeMs: millis(0),
		Timestamp:      time.Now().UTC(),
		ErrorMessage:   message,
	}
}

// outcomeFailureKind maps a transient outcome classification to the retry
// failure kind. Semantic outcomes (success, content mismatch) and redirect
// loops are terminal and map to nothing.
func outcomeFailureKind(status Status) (retry.FailureKind, bool) {
	switch status {
	case StatusTimeoutError:
		return retry.FailureTimeout, true
	case StatusConnectionError:
		return retry.FailureConnection, true
	default:
		return 0, false
	}
}

// classifyTransportError sorts a transport-level error into the status
// taxonomy: timeouts, redirect loops, and everything else as a connection
// failure (DNS, refused, reset).
func classifyTransportError(err error, timeout time.Duration) (Status, string) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return StatusTimeoutError, fmt.Sprintf("request timed out after %s", timeout)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && strings.Contains(urlErr.Err.Error(), "stopped after") {
		return StatusRedirectError, fmt.Sprintf("redirect error: %v", urlErr.Err)
	}

	return StatusConnectionError, fmt.Sprintf("connection error: %v", err)
}
