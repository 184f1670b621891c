package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/datadesk/internal/proxy"
)

// BrowserOptions configures a headless Chrome session.
type BrowserOptions struct {
	Headless     bool
	Proxies      *proxy.Manager
	PageTimeout  time.Duration
	WaitSelector string
	WaitTimeout  time.Duration
	SettleDelay  time.Duration
	Headers      map[string]interface{}
}

// BrowserSession owns one Chrome process for the lifetime of a run. It is a
// Transport: each Get opens a tab, renders the page and returns its HTML.
// Close must be called on every exit path.
type BrowserSession struct {
	opts          BrowserOptions
	logger        *zap.Logger
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
}

// NewBrowserSession launches Chrome and keeps it running until Close.
func NewBrowserSession(ctx context.Context, opts BrowserOptions, logger *zap.Logger) (*BrowserSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 60 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 15 * time.Second
	}
	if opts.Proxies == nil {
		opts.Proxies = proxy.NewManager(nil, nil)
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.Proxies.GetUserAgent()),
	)
	if p := opts.Proxies.GetProxy(); p != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(p))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	// Run with no actions starts the browser so launch errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	logger.Info("browser session started", zap.Bool("headless", opts.Headless))

	return &BrowserSession{
		opts:          opts,
		logger:        logger,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

// Get renders url in a fresh tab. A wait selector that never appears is not
// an error: the HTML is captured anyway and the extractor decides.
func (s *BrowserSession) Get(ctx context.Context, url string) (*Response, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, s.opts.PageTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	setup := []chromedp.Action{network.Enable()}
	if len(s.opts.Headers) > 0 {
		setup = append(setup, network.SetExtraHTTPHeaders(network.Headers(s.opts.Headers)))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		return nil, fmt.Errorf("prepare tab: %w", err)
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	status := 200
	if resp != nil {
		status = int(resp.Status)
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{Code: status, URL: url}
	}

	var html, location string
	err = chromedp.Run(tabCtx,
		s.waitForSelector(url),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return &Response{Body: []byte(html), StatusCode: status, FinalURL: location}, nil
}

func (s *BrowserSession) waitForSelector(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.opts.WaitSelector == "" {
			return nil
		}
		waitCtx, cancel := context.WithTimeout(ctx, s.opts.WaitTimeout)
		defer cancel()
		err := chromedp.WaitReady(s.opts.WaitSelector, chromedp.ByQuery).Do(waitCtx)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("wait selector not found, capturing page as is",
				zap.String("url", url),
				zap.String("selector", s.opts.WaitSelector),
			)
			return nil
		}
		return err
	})
}

// Close shuts Chrome down. It is safe to call more than once.
func (s *BrowserSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.browserCtx)
		s.browserCancel()
		s.allocCancel()
		s.logger.Info("browser session closed")
	})
	return err
}
