package check

import "time"

// Result is the outcome of one full check after all retries. Instances are
// transient: created once per attempt sequence, recorded by the sink, then
// discarded.
//
// ResponseTimeMs is nil when the check never reached a measurable point and
// zero when attempts were exhausted through a pre-response failure path.
type Result struct {
	Name               string    `json:"name,omitempty"`
	URL                string    `json:"url"`
	Status             Status    `json:"status"`
	ResponseTimeMs     *int64    `json:"response_time_ms"`
	Timestamp          time.Time `json:"timestamp"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	FailedRequirements []string  `json:"failed_content_requirements,omitempty"`
}

// IsSuccess reports whether the check passed.
func (r *Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
