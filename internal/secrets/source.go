// Package secrets owns the shared API secret set used by the
// machine-lookup path: where secrets come from, how long they are
// cached, and how a caller-supplied value is checked against them.
package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Source provides the current list of valid API secrets.
// Implementations fetch from a trusted secret store; the Cache decides
// when to ask.
type Source interface {
	Fetch(ctx context.Context) ([]string, error)
}

// StaticSource serves a fixed secret list, typically parsed from an
// environment variable. It never fails and never changes.
type StaticSource []string

// Fetch returns the static list.
func (s StaticSource) Fetch(ctx context.Context) ([]string, error) {
	return []string(s), nil
}

// ParseStatic builds a StaticSource from a comma-separated secret list.
func ParseStatic(raw string) StaticSource {
	parts := strings.Split(raw, ",")
	secrets := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			secrets = append(secrets, trimmed)
		}
	}
	return StaticSource(secrets)
}

// RedisSource fetches the secret list from a Redis key holding a
// comma-separated value. Rotating secrets is a plain SET on that key;
// running instances pick it up on their next cache refresh.
type RedisSource struct {
	client *redis.Client
	key    string
}

// DefaultRedisKey is the Redis key holding the secret list.
const DefaultRedisKey = "keyserve:api-keys"

// NewRedisSource creates a RedisSource and verifies connectivity.
func NewRedisSource(ctx context.Context, redisURL, key string) (*RedisSource, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisSource{client: client, key: key}, nil
}

// Fetch reads and parses the secret list.
// A missing key yields an empty list, not an error: an operator who has
// not provisioned secrets yet gets uniform auth rejections, not 500s.
func (s *RedisSource) Fetch(ctx context.Context) ([]string, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch secrets from Redis: %w", err)
	}
	return ParseStatic(raw), nil
}

// Ping checks Redis connectivity.
func (s *RedisSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisSource) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to RedisSource.
func (s *RedisSource) Client() *redis.Client {
	return s.client
}
