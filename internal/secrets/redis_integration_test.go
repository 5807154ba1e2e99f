//go:build integration

package secrets

import (
	"context"
	"testing"
	"time"

	"github.com/keyserve/keyserve/internal/testutil"
)

func TestIntegrationRedisSource_Fetch(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	src, err := NewRedisSource(ctx, redisURL, "keyserve:test:api-keys")
	if err != nil {
		t.Fatalf("NewRedisSource: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	if err := testutil.FlushRedis(ctx, src.Client()); err != nil {
		t.Fatalf("FlushRedis: %v", err)
	}

	// Missing key yields an empty list, not an error.
	secrets, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch on missing key: %v", err)
	}
	if len(secrets) != 0 {
		t.Errorf("expected empty list for missing key, got %v", secrets)
	}

	if err := src.Client().Set(ctx, "keyserve:test:api-keys", "alpha, beta ,", 0).Err(); err != nil {
		t.Fatalf("seed secrets: %v", err)
	}

	secrets, err = src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(secrets) != 2 || secrets[0] != "alpha" || secrets[1] != "beta" {
		t.Errorf("unexpected secrets: %v", secrets)
	}
}

func TestIntegrationRedisSource_CacheRotation(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	src, err := NewRedisSource(ctx, redisURL, "keyserve:test:api-keys")
	if err != nil {
		t.Fatalf("NewRedisSource: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	if err := src.Client().Set(ctx, "keyserve:test:api-keys", "first", 0).Err(); err != nil {
		t.Fatalf("seed secrets: %v", err)
	}

	cache := NewCache(src, 10*time.Millisecond, discardLogger())

	ok, err := cache.Verify(ctx, "first")
	if err != nil || !ok {
		t.Fatalf("Verify(first) = %v, %v", ok, err)
	}

	if err := src.Client().Set(ctx, "keyserve:test:api-keys", "second", 0).Err(); err != nil {
		t.Fatalf("rotate secrets: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	ok, err = cache.Verify(ctx, "second")
	if err != nil {
		t.Fatalf("Verify(second): %v", err)
	}
	if !ok {
		t.Error("rotated secret not picked up after TTL expiry")
	}
}
