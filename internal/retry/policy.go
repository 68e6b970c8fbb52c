package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Strategy selects the delay formula between attempts.
type Strategy string

const (
	StrategyFixed       Strategy = "FIXED"
	StrategyLinear      Strategy = "LINEAR"
	StrategyExponential Strategy = "EXPONENTIAL"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixed, StrategyLinear, StrategyExponential:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown retry strategy %q", s)
	}
}

// FailureKind classifies an attempt failure for the retry decision.
// Content mismatches never reach the policy; the checker treats them as
// terminal.
type FailureKind int

const (
	FailureTimeout FailureKind = iota
	FailureConnection
	FailureHTTPStatus
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection"
	case FailureHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// Options carries the policy configuration accepted by NewPolicy.
type Options struct {
	Enabled                bool
	MaxAttempts            int
	Strategy               Strategy
	BaseDelay              time.Duration
	MaxDelay               time.Duration
	BackoffMultiplier      float64
	RetryOnStatusCodes     []int
	RetryOnTimeout         bool
	RetryOnConnectionError bool
	Jitter                 bool
}

// Policy is an immutable retry policy. Construct with NewPolicy.
type Policy struct {
	enabled           bool
	maxAttempts       int
	strategy          Strategy
	baseDelay         time.Duration
	maxDelay          time.Duration
	backoffMultiplier float64
	retryOnStatus     map[int]struct{}
	retryOnTimeout    bool
	retryOnConnErr    bool
	jitter            bool
}

// NewPolicy validates opts and builds a Policy. The max delay must be at
// least the base delay, the attempt budget at least one, and the backoff
// multiplier positive.
func NewPolicy(opts Options) (*Policy, error) {
	if opts.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", opts.MaxAttempts)
	}
	if _, err := ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}
	if opts.BaseDelay < 0 {
		return nil, fmt.Errorf("base delay cannot be negative, got %s", opts.BaseDelay)
	}
	if opts.MaxDelay < opts.BaseDelay {
		return nil, fmt.Errorf("max delay %s must be >= base delay %s", opts.MaxDelay, opts.BaseDelay)
	}
	if opts.BackoffMultiplier <= 0 {
		return nil, fmt.Errorf("backoff multiplier must be positive, got %g", opts.BackoffMultiplier)
	}

	retryOnStatus := make(map[int]struct{}, len(opts.RetryOnStatusCodes))
	for _, code := range opts.RetryOnStatusCodes {
		retryOnStatus[code] = struct{}{}
	}

	return &Policy{
		enabled:           opts.Enabled,
		maxAttempts:       opts.MaxAttempts,
		strategy:          opts.Strategy,
		baseDelay:         opts.BaseDelay,
		maxDelay:          opts.MaxDelay,
		backoffMultiplier: opts.BackoffMultiplier,
		retryOnStatus:     retryOnStatus,
		retryOnTimeout:    opts.RetryOnTimeout,
		retryOnConnErr:    opts.RetryOnConnectionError,
		jitter:            opts.Jitter,
	}, nil
}

// DefaultOptions returns the policy configuration used when a site declares
// none: three exponential attempts from 1s capped at 30s, retrying common
// transient server statuses, timeouts, and connection failures, with jitter.
func DefaultOptions() Options {
	return Options{
		Enabled:                true,
		MaxAttempts:            3,
		Strategy:               StrategyExponential,
		BaseDelay:              time.Second,
		MaxDelay:               30 * time.Second,
		BackoffMultiplier:      2.0,
		RetryOnStatusCodes:     []int{500, 502, 503, 504},
		RetryOnTimeout:         true,
		RetryOnConnectionError: true,
		Jitter:                 true,
	}
}

// DefaultPolicy builds the default policy. The defaults are always valid,
// so construction cannot fail.
func DefaultPolicy() *Policy {
	policy, err := NewPolicy(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return policy
}

// Enabled reports whether retrying is switched on at all.
func (p *Policy) Enabled() bool {
	return p.enabled
}

// MaxAttempts returns the total attempt budget, including the first attempt.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Strategy returns the configured delay strategy.
func (p *Policy) Strategy() Strategy {
	return p.strategy
}

// BaseDelay returns the delay before the first retry.
func (p *Policy) BaseDelay() time.Duration {
	return p.baseDelay
}

// MaxDelay returns the ceiling applied to the computed delay before jitter.
func (p *Policy) MaxDelay() time.Duration {
	return p.maxDelay
}

// DelayForAttempt computes the backoff delay after the given 1-based attempt
// number. The raw strategy delay is clamped to the max delay first; jitter,
// when enabled, scales the clamped value by a uniform factor in [0.8, 1.2],
// so a jittered delay may exceed the max delay by up to 20%.
func (p *Policy) DelayForAttempt(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.strategy {
	case StrategyFixed:
		delay = p.baseDelay
	case StrategyLinear:
		delay = p.baseDelay * time.Duration(attempt)
	case StrategyExponential:
		raw := float64(p.baseDelay) * math.Pow(p.backoffMultiplier, float64(attempt-1))
		if raw >= float64(p.maxDelay) {
			delay = p.maxDelay
		} else {
			delay = time.Duration(raw)
		}
	}

	if delay > p.maxDelay {
		delay = p.maxDelay
	}

	if p.jitter {
		factor := 0.8 + 0.4*rand.Float64()
		delay = time.Duration(float64(delay) * factor)
	}

	return delay
}

// ShouldRetry reports whether a failed attempt should be retried. The
// statusCode is only consulted for FailureHTTPStatus. attempt is 1-based;
// the final allowed attempt is never retried.
func (p *Policy) ShouldRetry(kind FailureKind, statusCode, attempt int) bool {
	if !p.enabled || attempt >= p.maxAttempts {
		return false
	}

	switch kind {
	case FailureTimeout:
		return p.retryOnTimeout
	case FailureConnection:
		return p.retryOnConnErr
	case FailureHTTPStatus:
		_, ok := p.retryOnStatus[statusCode]
		return ok
	default:
		return false
	}
}

// RetryableStatus reports whether the status code is in the configured
// retryable set.
func (p *Policy) RetryableStatus(code int) bool {
	_, ok := p.retryOnStatus[code]
	return ok
}
