package feedcache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCap = 5

// cacheBackends returns a constructor per available implementation. The
// in-memory one always runs; the Redis one only when REDIS_ADDR points at a
// live server.
func cacheBackends(t *testing.T) map[string]func(t *testing.T) FeedCache {
	backends := map[string]func(t *testing.T) FeedCache{
		"memory": func(t *testing.T) FeedCache {
			return NewMemoryFeedCache(testCap)
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		backends["redis"] = func(t *testing.T) FeedCache {
			client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
			require.NoError(t, client.FlushDB(context.Background()).Err())
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisFeedCache(client, testCap, time.Hour)
		}
	}

	return backends
}

func forEachCache(t *testing.T, test func(t *testing.T, cache FeedCache)) {
	for name, build := range cacheBackends(t) {
		t.Run(name, func(t *testing.T) {
			test(t, build(t))
		})
	}
}

func cacheEntry(owner uint, n int) models.FeedEntry {
	return models.FeedEntry{
		OwnerID:   owner,
		PostID:    fmt.Sprintf("post-%04d", n),
		CreatedAt: time.Unix(1700000000, 0).UTC().Add(time.Duration(n) * time.Millisecond),
	}
}

// newestFirst builds entries n-1 .. 0, the order a refill receives them.
func newestFirst(owner uint, n int) []models.FeedEntry {
	entries := make([]models.FeedEntry, n)
	for i := range entries {
		entries[i] = cacheEntry(owner, n-1-i)
	}
	return entries
}

func TestPushToColdKeyIsNoOp(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Push(ctx, 1, cacheEntry(1, 0)))

		_, ok, err := cache.Page(ctx, 1, nil, 10)
		require.NoError(t, err)
		assert.False(t, ok, "a push must not warm a cold key")
	})
}

func TestRefillThenPage(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 3)))

		entries, ok, err := cache.Page(ctx, 1, nil, 10)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, entries, 3)
		assert.Equal(t, "post-0002", entries[0].PostID)
		assert.Equal(t, "post-0000", entries[2].PostID)
	})
}

func TestPushAfterRefill(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 2)))
		require.NoError(t, cache.Push(ctx, 1, cacheEntry(1, 2)))

		entries, ok, err := cache.Page(ctx, 1, nil, 10)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, entries, 3)
		assert.Equal(t, "post-0002", entries[0].PostID)

		// replaying the same push changes nothing
		require.NoError(t, cache.Push(ctx, 1, cacheEntry(1, 2)))
		entries, _, err = cache.Page(ctx, 1, nil, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}

func TestPushTrimsAtCap(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, testCap)))
		require.NoError(t, cache.Push(ctx, 1, cacheEntry(1, testCap)))

		entries, ok, err := cache.Page(ctx, 1, nil, testCap)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, entries, testCap)
		// newest entry in, oldest trimmed out
		assert.Equal(t, fmt.Sprintf("post-%04d", testCap), entries[0].PostID)
		assert.Equal(t, "post-0001", entries[testCap-1].PostID)
	})
}

func TestPageBeyondTrimBoundIsIncomplete(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, testCap)))

		// resume past the oldest cached entry: the list is full, so older
		// entries may exist only in the durable store
		oldest := cacheEntry(1, 0)
		start := &pagination.Cursor{CreatedAt: oldest.CreatedAt, ID: oldest.PostID}
		_, ok, err := cache.Page(ctx, 1, start, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPageWithinPartialListIsComplete(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		// three entries, cap five: the cache holds the user's whole feed
		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 3)))

		newest := cacheEntry(1, 2)
		start := &pagination.Cursor{CreatedAt: newest.CreatedAt, ID: newest.PostID}
		entries, ok, err := cache.Page(ctx, 1, start, 10)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, entries, 2)
		assert.Equal(t, "post-0001", entries[0].PostID)
	})
}

func TestPageCursorIsExclusive(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 4)))

		second := cacheEntry(1, 2)
		start := &pagination.Cursor{CreatedAt: second.CreatedAt, ID: second.PostID}
		entries, ok, err := cache.Page(ctx, 1, start, 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, entries, 2)
		assert.Equal(t, "post-0001", entries[0].PostID)
		assert.Equal(t, "post-0000", entries[1].PostID)
	})
}

func TestRefillReplacesExistingList(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 3)))
		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 1)))

		entries, ok, err := cache.Page(ctx, 1, nil, 10)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, entries, 1)
	})
}

func TestEmptyRefillLeavesKeyCold(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 2)))
		require.NoError(t, cache.Refill(ctx, 1, nil))

		_, ok, err := cache.Page(ctx, 1, nil, 10)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCachesAreIsolatedPerOwner(t *testing.T) {
	forEachCache(t, func(t *testing.T, cache FeedCache) {
		ctx := context.Background()

		require.NoError(t, cache.Refill(ctx, 1, newestFirst(1, 2)))

		_, ok, err := cache.Page(ctx, 2, nil, 10)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
