// Package content evaluates content requirements against fetched response
// bodies. A requirement is either a literal substring match or a shell-style
// wildcard pattern matched against the entire body, optionally case-insensitive.
package content
