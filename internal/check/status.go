package check

// Status is the closed-set classification of a finished check. The values
// are mutually exclusive; one is assigned per completed attempt sequence.
type Status string

const (
	StatusSuccess         Status = "SUCCESS"
	StatusContentError    Status = "CONTENT_ERROR"
	StatusTimeoutError    Status = "TIMEOUT_ERROR"
	StatusConnectionError Status = "CONNECTION_ERROR"
	StatusServerError     Status = "SERVER_ERROR"
	StatusNotFound        Status = "NOT_FOUND"
	StatusRedirectError   Status = "REDIRECT_ERROR"
)

func (s Status) String() string {
	return string(s)
}
