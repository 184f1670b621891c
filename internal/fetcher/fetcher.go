// Package fetcher retrieves pages over plain HTTP or a headless browser and
// retries failed attempts with exponential backoff.
package fetcher

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/monitoring"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffUnit = time.Second
)

// Fetcher wraps a Transport with the retry policy.
type Fetcher struct {
	transport   Transport
	maxAttempts int
	backoffUnit time.Duration
	sleeper     Sleeper
	logger      *zap.Logger
	metrics     *monitoring.Metrics
}

type Option func(*Fetcher)

func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

func WithBackoffUnit(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.backoffUnit = d
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleeper = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func New(t Transport, opts ...Option) *Fetcher {
	f := &Fetcher{
		transport:   t,
		maxAttempts: DefaultMaxAttempts,
		backoffUnit: DefaultBackoffUnit,
		sleeper:     RealSleeper{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url with the configured attempt ceiling.
func (f *Fetcher) Fetch(ctx context.Context, url string) domain.FetchResult {
	return f.FetchN(ctx, url, f.maxAttempts)
}

// FetchN retrieves url, making at most maxAttempts attempts and sleeping
// unit*2^i after failed attempt i. The first success is returned at once.
// Exhaustion yields a Failure with the last attempt's cause; FetchN never
// returns an error to the caller.
func (f *Fetcher) FetchN(ctx context.Context, url string, maxAttempts int) domain.FetchResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := f.logger.With(zap.String("url", url))

	if err := ValidateURL(url); err != nil {
		log.Error("not fetching malformed URL", zap.Error(err))
		f.metrics.IncFetchFailure(domain.ReasonInvalidURL.String())
		return domain.Failure(url, domain.ReasonInvalidURL, 1, err)
	}

	var (
		lastErr  error
		reason   domain.FailureReason
		attempts int
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attempts = attempt + 1
		log.Debug("fetching", zap.Int("attempt", attempts))

		start := time.Now()
		resp, err := f.transport.Get(ctx, url)
		elapsed := time.Since(start).Seconds()
		if err == nil && resp == nil {
			err = ErrNoResponse
		}
		if err == nil {
			f.metrics.IncFetchAttempt("success", elapsed)
			return domain.Success(url, resp.Body, resp.StatusCode, attempts)
		}
		f.metrics.IncFetchAttempt("failure", elapsed)

		lastErr, reason = err, classify(err)
		log.Warn("fetch attempt failed",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", maxAttempts),
			zap.String("reason", reason.String()),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			reason, lastErr = domain.ReasonCanceled, ctx.Err()
			break
		}
		if attempts == maxAttempts || reason == domain.ReasonInvalidURL {
			break
		}
		if err := f.sleeper.Sleep(ctx, f.backoff(attempt)); err != nil {
			reason, lastErr = domain.ReasonCanceled, err
			break
		}
	}

	log.Error("giving up on URL",
		zap.Int("attempts", attempts),
		zap.String("reason", reason.String()),
		zap.Error(lastErr),
	)
	f.metrics.IncFetchFailure(reason.String())
	return domain.Failure(url, reason, attempts, lastErr)
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	return f.backoffUnit * time.Duration(1<<attempt)
}

func classify(err error) domain.FailureReason {
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrInvalidURL):
		return domain.ReasonInvalidURL
	case errors.As(err, &statusErr):
		return domain.ReasonHTTPStatus
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.ReasonTimeout
	default:
		return domain.ReasonTransport
	}
}
