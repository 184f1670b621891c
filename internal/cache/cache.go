// Package cache keeps fetched pages for a while so a re-run after an
// interruption does not hit the sites again.
package cache

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/fetcher"
)

// PageStore is implemented by storage.RedisStore.
type PageStore interface {
	GetPage(ctx context.Context, url string) ([]byte, bool, error)
	PutPage(ctx context.Context, url string, body []byte, ttl time.Duration) error
}

// PageCache is a fetcher.Transport that serves successful responses from a
// PageStore. Store errors are logged and the request goes to the network.
type PageCache struct {
	next   fetcher.Transport
	store  PageStore
	ttl    time.Duration
	logger *zap.Logger
}

var _ fetcher.Transport = (*PageCache)(nil)

func NewPageCache(next fetcher.Transport, store PageStore, ttl time.Duration, logger *zap.Logger) *PageCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageCache{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *PageCache) Get(ctx context.Context, url string) (*fetcher.Response, error) {
	body, ok, err := c.store.GetPage(ctx, url)
	switch {
	case err != nil:
		c.logger.Warn("page cache read failed", zap.String("url", url), zap.Error(err))
	case ok:
		c.logger.Debug("page cache hit", zap.String("url", url))
		return &fetcher.Response{Body: body, StatusCode: http.StatusOK, FinalURL: url}, nil
	}

	resp, err := c.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutPage(ctx, url, resp.Body, c.ttl); err != nil {
		c.logger.Warn("page cache write failed", zap.String("url", url), zap.Error(err))
	}
	return resp, nil
}
