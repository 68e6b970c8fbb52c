package check

import (
	"errors"
	"net/url"
	"time"

	"github.com/angeloszaimis/site-guard/internal/content"
	"github.com/angeloszaimis/site-guard/internal/retry"
)

const defaultTimeout = 30 * time.Second

var ErrNoRequirements = errors.New("at least one content requirement must be specified")

// Site is the immutable specification of one monitored endpoint. It is
// created at config-load time and lives for the process run.
type Site struct {
	name         string
	url          *url.URL
	timeout      time.Duration
	requireAll   bool
	requirements []*content.Requirement
	retry        *retry.Policy
}

// NewSite builds a Site. The name defaults to the URL, the timeout to 30s,
// and the retry policy to the package default. At least one content
// requirement is required.
func NewSite(name string, target *url.URL, timeout time.Duration, requireAll bool,
	requirements []*content.Requirement, policy *retry.Policy) (*Site, error) {

	if target == nil {
		return nil, errors.New("site URL is required")
	}
	if len(requirements) == 0 {
		return nil, ErrNoRequirements
	}
	if name == "" {
		name = target.String()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if policy == nil {
		policy = retry.DefaultPolicy()
	}

	return &Site{
		name:         name,
		url:          target,
		timeout:      timeout,
		requireAll:   requireAll,
		requirements: requirements,
		retry:        policy,
	}, nil
}

// Name returns the display name of the site.
func (s *Site) Name() string {
	return s.name
}

// URL returns the target URL.
func (s *Site) URL() *url.URL {
	return s.url
}

// Timeout returns the per-request timeout.
func (s *Site) Timeout() time.Duration {
	return s.timeout
}

// RequireAll reports whether every content requirement must match (AND)
// rather than at least one (OR).
func (s *Site) RequireAll() bool {
	return s.requireAll
}

// Requirements returns the ordered content requirements.
func (s *Site) Requirements() []*content.Requirement {
	return s.requirements
}

// Retry returns the retry policy for this site.
func (s *Site) Retry() *retry.Policy {
	return s.retry
}
