package retry_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/site-guard/internal/retry"
)

func baseOptions() retry.Options {
	opts := retry.DefaultOptions()
	opts.Jitter = false
	return opts
}

var _ = Describe("NewPolicy", func() {
	It("should build a policy from the defaults", func() {
		policy, err := retry.NewPolicy(retry.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(policy.Enabled()).To(BeTrue())
		Expect(policy.MaxAttempts()).To(Equal(3))
		Expect(policy.Strategy()).To(Equal(retry.StrategyExponential))
		Expect(policy.BaseDelay()).To(Equal(time.Second))
		Expect(policy.MaxDelay()).To(Equal(30 * time.Second))
	})

	It("should reject a max delay below the base delay", func() {
		opts := baseOptions()
		opts.BaseDelay = 10 * time.Second
		opts.MaxDelay = 5 * time.Second
		_, err := retry.NewPolicy(opts)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("max delay"))
	})

	It("should reject an attempt budget below one", func() {
		opts := baseOptions()
		opts.MaxAttempts = 0
		_, err := retry.NewPolicy(opts)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a non-positive backoff multiplier", func() {
		opts := baseOptions()
		opts.BackoffMultiplier = 0
		_, err := retry.NewPolicy(opts)
		Expect(err).To(HaveOccurred())
	})

	It("should reject an unknown strategy", func() {
		opts := baseOptions()
		opts.Strategy = "QUADRATIC"
		_, err := retry.NewPolicy(opts)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseStrategy", func() {
	DescribeTable("valid strategies",
		func(name string, expected retry.Strategy) {
			strategy, err := retry.ParseStrategy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(strategy).To(Equal(expected))
		},
		Entry("fixed", "FIXED", retry.StrategyFixed),
		Entry("linear", "LINEAR", retry.StrategyLinear),
		Entry("exponential", "EXPONENTIAL", retry.StrategyExponential),
	)

	It("should reject unknown names", func() {
		_, err := retry.ParseStrategy("fixed")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("DelayForAttempt", func() {
	It("should return zero for non-positive attempts", func() {
		policy, _ := retry.NewPolicy(baseOptions())
		Expect(policy.DelayForAttempt(0)).To(Equal(time.Duration(0)))
		Expect(policy.DelayForAttempt(-1)).To(Equal(time.Duration(0)))
	})

	It("should stay constant under FIXED", func() {
		opts := baseOptions()
		opts.Strategy = retry.StrategyFixed
		opts.BaseDelay = 2 * time.Second
		policy, _ := retry.NewPolicy(opts)

		Expect(policy.DelayForAttempt(1)).To(Equal(2 * time.Second))
		Expect(policy.DelayForAttempt(5)).To(Equal(2 * time.Second))
	})

	It("should grow linearly under LINEAR", func() {
		opts := baseOptions()
		opts.Strategy = retry.StrategyLinear
		opts.BaseDelay = time.Second
		policy, _ := retry.NewPolicy(opts)

		Expect(policy.DelayForAttempt(1)).To(Equal(1 * time.Second))
		Expect(policy.DelayForAttempt(2)).To(Equal(2 * time.Second))
		Expect(policy.DelayForAttempt(3)).To(Equal(3 * time.Second))
	})

	It("should grow geometrically under EXPONENTIAL", func() {
		opts := baseOptions()
		opts.BaseDelay = time.Second
		opts.BackoffMultiplier = 2.0
		policy, _ := retry.NewPolicy(opts)

		Expect(policy.DelayForAttempt(1)).To(Equal(1 * time.Second))
		Expect(policy.DelayForAttempt(2)).To(Equal(2 * time.Second))
		Expect(policy.DelayForAttempt(3)).To(Equal(4 * time.Second))
	})

	It("should clamp to the max delay", func() {
		opts := baseOptions()
		opts.BaseDelay = time.Second
		opts.MaxDelay = 5 * time.Second
		opts.BackoffMultiplier = 10.0
		policy, _ := retry.NewPolicy(opts)

		Expect(policy.DelayForAttempt(4)).To(Equal(5 * time.Second))
		Expect(policy.DelayForAttempt(100)).To(Equal(5 * time.Second))
	})

	DescribeTable("delays are non-decreasing in the attempt number",
		func(strategy retry.Strategy) {
			opts := baseOptions()
			opts.Strategy = strategy
			policy, _ := retry.NewPolicy(opts)

			previous := time.Duration(0)
			for attempt := 1; attempt <= 10; attempt++ {
				delay := policy.DelayForAttempt(attempt)
				Expect(delay).To(BeNumerically(">=", previous))
				previous = delay
			}
		},
		Entry("FIXED", retry.StrategyFixed),
		Entry("LINEAR", retry.StrategyLinear),
		Entry("EXPONENTIAL", retry.StrategyExponential),
	)

	Context("with jitter", func() {
		It("should stay within [0.8, 1.2] of the clamped delay", func() {
			opts := baseOptions()
			opts.Strategy = retry.StrategyFixed
			opts.BaseDelay = time.Second
			opts.Jitter = true
			policy, _ := retry.NewPolicy(opts)

			for i := 0; i < 200; i++ {
				delay := policy.DelayForAttempt(1)
				Expect(delay).To(BeNumerically(">=", 800*time.Millisecond))
				Expect(delay).To(BeNumerically("<=", 1200*time.Millisecond))
			}
		})

		It("should never exceed 1.2x the max delay", func() {
			opts := baseOptions()
			opts.BaseDelay = time.Second
			opts.MaxDelay = 2 * time.Second
			opts.BackoffMultiplier = 100.0
			opts.Jitter = true
			policy, _ := retry.NewPolicy(opts)

			for i := 0; i < 200; i++ {
				delay := policy.DelayForAttempt(10)
				Expect(delay).To(BeNumerically("<=", time.Duration(1.2*float64(2*time.Second))))
			}
		})
	})
})

var _ = Describe("ShouldRetry", func() {
	newPolicy := func(mutate func(*retry.Options)) *retry.Policy {
		opts := baseOptions()
		if mutate != nil {
			mutate(&opts)
		}
		policy, err := retry.NewPolicy(opts)
		Expect(err).NotTo(HaveOccurred())
		return policy
	}

	It("should never retry when disabled", func() {
		policy := newPolicy(func(o *retry.Options) { o.Enabled = false })
		Expect(policy.ShouldRetry(retry.FailureTimeout, 0, 1)).To(BeFalse())
		Expect(policy.ShouldRetry(retry.FailureHTTPStatus, 500, 1)).To(BeFalse())
	})

	It("should never retry on the final allowed attempt", func() {
		policy := newPolicy(nil)
		Expect(policy.ShouldRetry(retry.FailureTimeout, 0, 3)).To(BeFalse())
	})

	It("should retry retryable status codes", func() {
		policy := newPolicy(nil)
		Expect(policy.ShouldRetry(retry.FailureHTTPStatus, 500, 1)).To(BeTrue())
		Expect(policy.ShouldRetry(retry.FailureHTTPStatus, 503, 2)).To(BeTrue())
	})

	It("should not retry status codes outside the configured set", func() {
		policy := newPolicy(nil)
		Expect(policy.ShouldRetry(retry.FailureHTTPStatus, 404, 1)).To(BeFalse())
		Expect(policy.ShouldRetry(retry.FailureHTTPStatus, 418, 1)).To(BeFalse())
	})

	It("should honor the timeout flag", func() {
		Expect(newPolicy(nil).ShouldRetry(retry.FailureTimeout, 0, 1)).To(BeTrue())

		noTimeout := newPolicy(func(o *retry.Options) { o.RetryOnTimeout = false })
		Expect(noTimeout.ShouldRetry(retry.FailureTimeout, 0, 1)).To(BeFalse())
	})

	It("should honor the connection error flag", func() {
		Expect(newPolicy(nil).ShouldRetry(retry.FailureConnection, 0, 1)).To(BeTrue())

		noConn := newPolicy(func(o *retry.Options) { o.RetryOnConnectionError = false })
		Expect(noConn.ShouldRetry(retry.FailureConnection, 0, 1)).To(BeFalse())
	})
})
