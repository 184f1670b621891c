package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/datadesk/internal/proxy"
)

// HTTPOptions controls plain HTTP fetching.
type HTTPOptions struct {
	Timeout time.Duration
	Proxies *proxy.Manager
	Headers map[string]string
}

// HTTPTransport fetches pages with a resty client. Redirects are followed and
// any final status outside 2xx is reported as a *StatusError.
type HTTPTransport struct {
	client  *resty.Client
	proxies *proxy.Manager
}

func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Proxies == nil {
		opts.Proxies = proxy.NewManager(nil, nil)
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(0)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	for k, v := range opts.Headers {
		client.SetHeader(k, v)
	}

	return &HTTPTransport{client: client, proxies: opts.Proxies}
}

// Get performs one GET request. Calls are not safe for concurrent use when
// proxies are configured, since the proxy is rotated on the shared client.
func (t *HTTPTransport) Get(ctx context.Context, url string) (*Response, error) {
	if p := t.proxies.GetProxy(); p != "" {
		t.client.SetProxy(p)
	}

	res, err := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", t.proxies.GetUserAgent()).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &StatusError{Code: res.StatusCode(), URL: url}
	}

	finalURL := url
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}
	return &Response{
		Body:       res.Body(),
		StatusCode: res.StatusCode(),
		FinalURL:   finalURL,
	}, nil
}
