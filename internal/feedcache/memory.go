package feedcache

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
)

// MemoryFeedCache implements FeedCache in memory for tests and local
// development, with the same cold-key and trim-bound semantics as the Redis
// implementation.
type MemoryFeedCache struct {
	mu    sync.RWMutex
	cap   int
	lists map[uint][]models.FeedEntry // newest first; key absent = cold
}

// NewMemoryFeedCache creates a new MemoryFeedCache with the given list cap.
func NewMemoryFeedCache(listCap int) *MemoryFeedCache {
	return &MemoryFeedCache{cap: listCap, lists: make(map[uint][]models.FeedEntry)}
}

func (c *MemoryFeedCache) Push(_ context.Context, ownerID uint, entry models.FeedEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.lists[ownerID]
	if !ok {
		return nil
	}
	for _, e := range list {
		if e.PostID == entry.PostID {
			return nil
		}
	}
	list = append(list, entry)
	sort.Slice(list, func(i, j int) bool {
		return list[j].PageKey().Before(list[i].PageKey())
	})
	if len(list) > c.cap {
		list = list[:c.cap]
	}
	c.lists[ownerID] = list
	return nil
}

func (c *MemoryFeedCache) Page(_ context.Context, ownerID uint, start *pagination.Cursor, limit int) ([]models.FeedEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.lists[ownerID]
	if !ok {
		return nil, false, nil
	}
	var page []models.FeedEntry
	for _, e := range list {
		if start != nil && !e.PageKey().Before(*start) {
			continue
		}
		page = append(page, e)
		if len(page) == limit {
			break
		}
	}
	if len(page) < limit && len(list) >= c.cap {
		return nil, false, nil
	}
	out := make([]models.FeedEntry, len(page))
	copy(out, page)
	return out, true, nil
}

func (c *MemoryFeedCache) Refill(_ context.Context, ownerID uint, entries []models.FeedEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entries) == 0 {
		// mirror Redis: an empty refill leaves the key cold
		delete(c.lists, ownerID)
		return nil
	}
	if len(entries) > c.cap {
		entries = entries[:c.cap]
	}
	list := make([]models.FeedEntry, len(entries))
	copy(list, entries)
	c.lists[ownerID] = list
	return nil
}
