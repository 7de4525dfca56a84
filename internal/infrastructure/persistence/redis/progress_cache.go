package redis

import (
	"context"
	"errors"
	"time"

	"github.com/eduverse/progress-engine/internal/domain/progress"
)

// progressKeyPrefix namespaces snapshot keys.
const progressKeyPrefix = "progress:"

// ProgressKey returns the cache key for a user's snapshot.
func ProgressKey(userID progress.UserID) string {
	return progressKeyPrefix + userID.String()
}

// ProgressCache implements progress.Cache on the generic Cache.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{cache: cache}
}

// Get returns the cached snapshot, found=false on a miss.
func (c *ProgressCache) Get(ctx context.Context, userID progress.UserID) (progress.Progress, bool, error) {
	var p progress.Progress
	err := c.cache.Get(ctx, ProgressKey(userID), &p)
	if errors.Is(err, ErrCacheMiss) {
		return progress.Progress{}, false, nil
	}
	if err != nil {
		return progress.Progress{}, false, err
	}
	return p, true, nil
}

// Set stores a snapshot with a TTL.
func (c *ProgressCache) Set(ctx context.Context, p progress.Progress, ttl time.Duration) error {
	return c.cache.Set(ctx, ProgressKey(p.UserID), p, ttl)
}

// Delete invalidates the cached snapshot.
func (c *ProgressCache) Delete(ctx context.Context, userID progress.UserID) error {
	return c.cache.Delete(ctx, ProgressKey(userID))
}
