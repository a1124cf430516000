// Package cache provides a Redis-backed response cache for availability
// queries.  The cache is advisory only: booking decisions always read
// the seat ledger, and every ledger mutation bumps a per-(train, date)
// version key so stale entries become unreachable instead of being
// scanned and deleted.  A nil Redis client disables the cache entirely.
package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache caches serialized fare-class availability responses
// keyed by (train, date, origin, destination).  Entries expire after
// TTL; Invalidate makes all entries for a (train, date) pair
// unreachable immediately.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewAvailabilityCache builds a cache around the given client.  The
// client may be nil, in which case every lookup misses and every write
// is a no-op.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, prefix string) *AvailabilityCache {
	if prefix == "" {
		prefix = "avail"
	}
	return &AvailabilityCache{client: client, ttl: ttl, prefix: prefix}
}

// versionKey names the counter bumped on every ledger mutation for a
// (train, date) pair.
func (c *AvailabilityCache) versionKey(trainNo, date string) string {
	return fmt.Sprintf("%s:ver:%s:%s", c.prefix, trainNo, date)
}

// entryKey builds a stable key from the query parameters and the
// current version.  The parameter tail is hashed so station names never
// need escaping.
func (c *AvailabilityCache) entryKey(ctx context.Context, trainNo, date, origin, destination string) (string, error) {
	ver, err := c.client.Get(ctx, c.versionKey(trainNo, date)).Result()
	if err == redis.Nil {
		ver = "0"
	} else if err != nil {
		return "", err
	}
	tail := strings.Join([]string{trainNo, date, origin, destination, ver}, "|")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", c.prefix, sum[:]), nil
}

// Get returns the cached payload for the query, or ok=false on a miss.
// Redis errors are treated as misses so that an unhealthy cache never
// blocks availability reads.
func (c *AvailabilityCache) Get(ctx context.Context, trainNo, date, origin, destination string) ([]byte, bool) {
	if c.client == nil {
		return nil, false
	}
	key, err := c.entryKey(ctx, trainNo, date, origin, destination)
	if err != nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Set stores the payload for the query under the current version.
// Failures are ignored; the next read simply misses.
func (c *AvailabilityCache) Set(ctx context.Context, trainNo, date, origin, destination string, payload []byte) {
	if c.client == nil {
		return
	}
	key, err := c.entryKey(ctx, trainNo, date, origin, destination)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate bumps the version for a (train, date) pair, orphaning
// every cached entry that depends on it.  Called after every allocate
// and release so availability reads reflect committed ledger state.
func (c *AvailabilityCache) Invalidate(ctx context.Context, trainNo, date string) {
	if c.client == nil {
		return
	}
	key := c.versionKey(trainNo, date)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return
	}
	// Version keys outlive entries by a wide margin so a live entry can
	// never pair with an expired version.
	_ = c.client.Expire(ctx, key, 24*time.Hour).Err()
}
