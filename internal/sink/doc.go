// Package sink durably records check results. The file sink appends one
// pretty-printed JSON entry per result to a size-rotated log file and
// serializes its own writes, so it is safe to call from concurrent check
// completions.
package sink
