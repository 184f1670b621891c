package domain

// FailureReason enumerates why a fetch gave up.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonInvalidURL
	ReasonTimeout
	ReasonHTTPStatus
	ReasonTransport
	ReasonCanceled
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidURL:
		return "invalid_url"
	case ReasonTimeout:
		return "timeout"
	case ReasonHTTPStatus:
		return "http_status"
	case ReasonTransport:
		return "transport"
	case ReasonCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// FetchResult is either a Success carrying the raw payload or a Failure
// carrying the cause of the last attempt. It is immutable once built.
type FetchResult struct {
	url      string
	payload  []byte
	status   int
	reason   FailureReason
	attempts int
	err      error
}

// Success builds a successful FetchResult.
func Success(url string, payload []byte, status, attempts int) FetchResult {
	return FetchResult{url: url, payload: payload, status: status, attempts: attempts}
}

// Failure builds a failed FetchResult.
func Failure(url string, reason FailureReason, attempts int, err error) FetchResult {
	return FetchResult{url: url, reason: reason, attempts: attempts, err: err}
}

func (r FetchResult) OK() bool              { return r.reason == ReasonNone }
func (r FetchResult) URL() string           { return r.url }
func (r FetchResult) StatusCode() int       { return r.status }
func (r FetchResult) Reason() FailureReason { return r.reason }
func (r FetchResult) Attempts() int         { return r.attempts }
func (r FetchResult) Err() error            { return r.err }

// Payload returns a copy of the fetched content; nil on failure.
func (r FetchResult) Payload() []byte {
	if r.payload == nil {
		return nil
	}
	out := make([]byte, len(r.payload))
	copy(out, r.payload)
	return out
}
