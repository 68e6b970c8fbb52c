// Package monitor orchestrates monitoring rounds. A round fans out one
// concurrent site check per configured site, streams results in completion
// order, records each result in the sink before yielding it, and isolates
// per-site failures. The runner repeats rounds on the configured interval
// until its context is cancelled.
package monitor
