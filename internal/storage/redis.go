package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore caches fetched page bodies.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(c *redis.Client) *RedisStore {
	return &RedisStore{client: c}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// pageKey hashes url so arbitrary query strings make safe, bounded keys.
func pageKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "page:" + hex.EncodeToString(sum[:])
}

// GetPage returns the cached body for url, if any.
func (s *RedisStore) GetPage(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := s.client.Get(ctx, pageKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// PutPage caches body for url with a TTL.
func (s *RedisStore) PutPage(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	return s.client.Set(ctx, pageKey(url), body, ttl).Err()
}
