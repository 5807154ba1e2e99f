package secrets

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched secret set stays valid.
// Matches the upstream secret store's rotation cadence expectations.
const DefaultTTL = 10 * time.Minute

// Cache is the process-wide holder of the valid API secret set.
//
// It is the single owner of that state: all verification goes through
// Verify, all reads through Secrets. On expiry the next caller triggers
// a synchronous refetch; concurrent callers with a warm cache are never
// blocked by a refresh, and concurrent refreshes collapse into one.
type Cache struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger

	// refreshMu serializes refreshes; mu guards the snapshot.
	// The snapshot slice is replaced whole and never mutated, so
	// readers cannot observe a partially updated list.
	refreshMu sync.Mutex
	mu        sync.RWMutex
	secrets   []string
	fetchedAt time.Time
}

// NewCache creates a Cache over the given source.
// A zero ttl falls back to DefaultTTL.
func NewCache(source Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// Secrets returns the current secret set, refreshing it if expired.
//
// If a refresh fails but a previously fetched set exists, the stale set
// is served and the failure logged; rotation lag beats an outage. Only
// a failure with nothing cached at all surfaces as an error.
func (c *Cache) Secrets(ctx context.Context) ([]string, error) {
	if secrets, ok := c.snapshot(); ok {
		return secrets, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if secrets, ok := c.snapshot(); ok {
		return secrets, nil
	}

	fetched, err := c.source.Fetch(ctx)
	if err != nil {
		c.mu.RLock()
		stale := c.secrets
		c.mu.RUnlock()

		if stale != nil {
			c.logger.Warn("secret refresh failed, serving cached set",
				slog.String("error", err.Error()),
			)
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch API secrets: %w", err)
	}

	cleaned := make([]string, 0, len(fetched))
	for _, s := range fetched {
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}

	c.mu.Lock()
	c.secrets = cleaned
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return cleaned, nil
}

// snapshot returns the cached set if it is still fresh.
func (c *Cache) snapshot() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.secrets == nil || time.Since(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.secrets, true
}

// Verify reports whether candidate matches any valid secret.
//
// Every secret in the set is compared with a constant-time comparison,
// with no early exit on match, so response timing does not reveal how
// close a guess was or where in the set a secret sits. An empty secret
// set rejects everything through the same path.
func (c *Cache) Verify(ctx context.Context, candidate string) (bool, error) {
	secrets, err := c.Secrets(ctx)
	if err != nil {
		return false, err
	}

	match := 0
	for _, s := range secrets {
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(s))
	}
	return match == 1, nil
}
