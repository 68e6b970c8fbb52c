package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var ErrEmptyPattern = errors.New("content requirement pattern cannot be empty")

// Requirement is a single assertion about response body text.
// It is immutable once constructed; matching is pure.
type Requirement struct {
	pattern       string
	useWildcards  bool
	caseSensitive bool
	matcher       glob.Glob
}

// New creates a Requirement from a pattern. The pattern is trimmed and must
// be non-empty. Wildcard patterns are compiled once here; `*` matches any run
// of characters (including newlines) and `?` matches exactly one character,
// and the pattern must match the whole body, not a substring of it.
func New(pattern string, useWildcards, caseSensitive bool) (*Requirement, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, ErrEmptyPattern
	}

	req := &Requirement{
		pattern:       pattern,
		useWildcards:  useWildcards,
		caseSensitive: caseSensitive,
	}

	if useWildcards {
		compilable := pattern
		if !caseSensitive {
			compilable = strings.ToLower(pattern)
		}
		matcher, err := glob.Compile(compilable)
		if err != nil {
			return nil, fmt.Errorf("invalid wildcard pattern %q: %w", pattern, err)
		}
		req.matcher = matcher
	}

	return req, nil
}

// Pattern returns the trimmed pattern text.
func (r *Requirement) Pattern() string {
	return r.pattern
}

// UseWildcards reports whether the pattern is matched as a wildcard.
func (r *Requirement) UseWildcards() bool {
	return r.useWildcards
}

// CaseSensitive reports whether matching respects character case.
func (r *Requirement) CaseSensitive() bool {
	return r.caseSensitive
}

// Matches reports whether body satisfies this requirement.
func (r *Requirement) Matches(body string) bool {
	text := body
	pattern := r.pattern
	if !r.caseSensitive {
		text = strings.ToLower(body)
		pattern = strings.ToLower(pattern)
	}

	if r.useWildcards {
		return r.matcher.Match(text)
	}

	return strings.Contains(text, pattern)
}

// CheckRequirements evaluates every requirement against body and returns
// whether the set passed together with the patterns that did not match, in
// requirement order. Every requirement is evaluated; there is no
// short-circuit, so all failures are collected.
//
// With requireAll, success means zero failures. Without it, success means at
// least one requirement matched.
func CheckRequirements(requirements []*Requirement, body string, requireAll bool) (bool, []string) {
	var failed []string

	for _, req := range requirements {
		if !req.Matches(body) {
			failed = append(failed, req.Pattern())
		}
	}

	if requireAll {
		return len(failed) == 0, failed
	}

	return len(failed) < len(requirements), failed
}
