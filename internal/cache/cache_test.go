package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/datadesk/internal/fetcher"
)

type memStore struct {
	pages   map[string][]byte
	ttls    map[string]time.Duration
	readErr error
}

func newMemStore() *memStore {
	return &memStore{pages: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) GetPage(ctx context.Context, url string) ([]byte, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	b, ok := m.pages[url]
	return b, ok, nil
}

func (m *memStore) PutPage(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	m.pages[url] = body
	m.ttls[url] = ttl
	return nil
}

func countingTransport(calls *int, err error) fetcher.Transport {
	return fetcher.TransportFunc(func(ctx context.Context, url string) (*fetcher.Response, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return &fetcher.Response{Body: []byte("body of " + url), StatusCode: 200, FinalURL: url}, nil
	})
}

func TestPageCache_MissThenHit(t *testing.T) {
	var calls int
	store := newMemStore()
	c := NewPageCache(countingTransport(&calls, nil), store, time.Hour, nil)

	for i := 0; i < 2; i++ {
		resp, err := c.Get(context.Background(), "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, "body of https://example.com/a", string(resp.Body))
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Hour, store.ttls["https://example.com/a"])
}

func TestPageCache_FailuresAreNotCached(t *testing.T) {
	var calls int
	store := newMemStore()
	c := NewPageCache(countingTransport(&calls, &fetcher.StatusError{Code: 503}), store, time.Hour, nil)

	_, err := c.Get(context.Background(), "https://example.com/a")
	var se *fetcher.StatusError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, store.pages)
}

func TestPageCache_StoreErrorFallsThrough(t *testing.T) {
	var calls int
	store := newMemStore()
	store.readErr = errors.New("connection refused")
	c := NewPageCache(countingTransport(&calls, nil), store, time.Hour, nil)

	resp, err := c.Get(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NotEmpty(t, resp.Body)
}
