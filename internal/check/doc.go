// Package check performs a single site check: one HTTP fetch with timeout,
// classification of the outcome, and the retry loop across attempts driven
// by the site's retry policy. It defines the closed status classification
// set, the immutable site specification, and the final check result handed
// to the sink.
package check
