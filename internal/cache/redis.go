// Package cache provides a Redis-backed cache for document analysis results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quill/api/internal/span"
)

// AnalysisCache stores resolved spans keyed by document content, so repeated
// analysis of unchanged text skips the oracle entirely.
type AnalysisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis at redisURL.
func New(redisURL string, ttl time.Duration) (*AnalysisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient builds a cache from an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AnalysisCache{
		client: client,
		prefix: "analysis:",
		ttl:    ttl,
	}
}

// Key derives the cache key for one document text and analysis mode. The key
// is content-addressed: any edit to the text invalidates it naturally.
func Key(text, mode string) string {
	sum := sha256.Sum256([]byte(text))
	return mode + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached spans for key, or ok=false on a miss.
func (c *AnalysisCache) Get(ctx context.Context, key string) ([]span.ResolvedSpan, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var spans []span.ResolvedSpan
	if err := json.Unmarshal([]byte(payload), &spans); err != nil {
		return nil, false, fmt.Errorf("decode cached spans: %w", err)
	}
	return spans, true, nil
}

// Put stores spans under key with the cache TTL.
func (c *AnalysisCache) Put(ctx context.Context, key string, spans []span.ResolvedSpan) error {
	payload, err := json.Marshal(spans)
	if err != nil {
		return fmt.Errorf("encode spans: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *AnalysisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *AnalysisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
