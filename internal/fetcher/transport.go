package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidURL is returned for URLs that cannot be requested at all.
var ErrInvalidURL = errors.New("invalid URL")

// ErrNoResponse is reported when a transport returns neither a response nor
// an error.
var ErrNoResponse = errors.New("transport returned no response")

// Response is the raw result of one successful transport call.
type Response struct {
	Body       []byte
	StatusCode int
	FinalURL   string
}

// Transport performs a single attempt at retrieving a URL.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, url string) (*Response, error)

func (f TransportFunc) Get(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Code, e.URL)
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
