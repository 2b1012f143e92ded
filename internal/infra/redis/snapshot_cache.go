// Package redis caches published balance snapshots so read-heavy consumers
// do not trigger recomputes. The log stays the source of truth; a cache miss
// just means folding again.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kvasha/bookkeeper/internal/ledger"
	"github.com/kvasha/bookkeeper/pkg/logger"
)

const (
	// DefaultTTL bounds how long a snapshot may serve reads before the next
	// fold refreshes it.
	DefaultTTL = 5 * time.Minute

	// KeyPrefix is the prefix for snapshot cache keys.
	KeyPrefix = "balances:"
)

// SnapshotCache is a Redis-backed cache of Balances snapshots keyed by book
// and snapshot version.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewSnapshotCache creates a snapshot cache with the default TTL.
func NewSnapshotCache(client *redis.Client, log *logger.Logger) *SnapshotCache {
	return NewSnapshotCacheWithTTL(client, DefaultTTL, log)
}

// NewSnapshotCacheWithTTL creates a snapshot cache with a custom TTL.
func NewSnapshotCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "snapshot_cache"),
	}
}

func key(book ledger.BookID, version uint64) string {
	return fmt.Sprintf("%s%s:%d", KeyPrefix, book, version)
}

// Get retrieves the cached snapshot for a book at a specific log version.
func (c *SnapshotCache) Get(ctx context.Context, book ledger.BookID, version uint64) (*ledger.Balances, bool, error) {
	val, err := c.client.Get(ctx, key(book, version)).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "book", book, "version", version)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "book", book, "error", err)
		return nil, false, fmt.Errorf("failed to get cached snapshot: %w", err)
	}

	var b ledger.Balances
	if err := json.Unmarshal([]byte(val), &b); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	return &b, true, nil
}

// Set stores a snapshot under its own version.
func (c *SnapshotCache) Set(ctx context.Context, book ledger.BookID, b *ledger.Balances) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(book, b.Version), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "book", book, "error", err)
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	c.logger.Debug("snapshot cached", "book", book, "version", b.Version)
	return nil
}
