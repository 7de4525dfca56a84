package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
	"github.com/eduverse/progress-engine/internal/infrastructure/persistence/memory"
	"github.com/eduverse/progress-engine/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(nil, logger.LevelError)
}

// fakeCache is a map-backed progress.Cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[progress.UserID]progress.Progress
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[progress.UserID]progress.Progress)}
}

func (c *fakeCache) Get(ctx context.Context, userID progress.UserID) (progress.Progress, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[userID]
	return p, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, p progress.Progress, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.UserID] = p
	c.sets++
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, userID progress.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

func TestGetProgress_LazyZeroState(t *testing.T) {
	store := memory.NewStore()
	cache := newFakeCache()
	h := NewGetProgressHandler(store, cache, time.Minute, testLogger())

	result, err := h.Handle(context.Background(), GetProgressQuery{UserID: "user-1"})
	require.NoError(t, err)

	assert.False(t, result.Persisted)
	assert.False(t, result.FromCache)
	assert.Equal(t, progress.UserID("user-1"), result.Progress.UserID)
	assert.Equal(t, 0, result.Progress.XP)
	assert.Equal(t, 1, result.Progress.Level)

	// The zero state is neither persisted nor cached.
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, cache.sets)
}

func TestGetProgress_StoreThenCache(t *testing.T) {
	store := memory.NewStore()
	cache := newFakeCache()
	h := NewGetProgressHandler(store, cache, time.Minute, testLogger())

	seed := progress.NewProgress("user-1")
	seed.XP = 65
	seed.Level = progress.LevelForXP(seed.XP)
	_, err := store.Save(context.Background(), seed, 0)
	require.NoError(t, err)

	first, err := h.Handle(context.Background(), GetProgressQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, first.Persisted)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.sets)

	second, err := h.Handle(context.Background(), GetProgressQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 65, second.Progress.XP)
	assert.Equal(t, 1, cache.sets)
}

func TestGetProgress_NoCacheConfigured(t *testing.T) {
	store := memory.NewStore()
	h := NewGetProgressHandler(store, nil, 0, testLogger())

	seed := progress.NewProgress("user-1")
	_, err := store.Save(context.Background(), seed, 0)
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), GetProgressQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.False(t, result.FromCache)
}

func TestGetProgress_Validation(t *testing.T) {
	h := NewGetProgressHandler(memory.NewStore(), nil, 0, testLogger())

	_, err := h.Handle(context.Background(), GetProgressQuery{})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
