// Package retry decides whether and when a failed site check attempt is
// retried. A Policy is immutable configuration plus pure functions: a delay
// schedule switched on the configured strategy and a retryability decision
// over classified failures.
package retry
