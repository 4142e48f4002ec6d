package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
)

// MemoryNewsfeedRepository implements NewsfeedRepository in memory for tests
// and local development.
type MemoryNewsfeedRepository struct {
	mu      sync.RWMutex
	entries map[uint][]models.FeedEntry
}

// NewMemoryNewsfeedRepository creates a new MemoryNewsfeedRepository
func NewMemoryNewsfeedRepository() *MemoryNewsfeedRepository {
	return &MemoryNewsfeedRepository{entries: make(map[uint][]models.FeedEntry)}
}

func (r *MemoryNewsfeedRepository) UpsertEntry(_ context.Context, entry *models.FeedEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries[entry.OwnerID] {
		if e.PostID == entry.PostID {
			return false, nil
		}
	}
	r.entries[entry.OwnerID] = append(r.entries[entry.OwnerID], *entry)
	return true, nil
}

func (r *MemoryNewsfeedRepository) ListEntries(_ context.Context, ownerID uint, start *pagination.Cursor, limit int) ([]models.FeedEntry, error) {
	r.mu.RLock()
	entries := make([]models.FeedEntry, len(r.entries[ownerID]))
	copy(entries, r.entries[ownerID])
	r.mu.RUnlock()

	// newest first
	sort.Slice(entries, func(i, j int) bool {
		return entries[j].PageKey().Before(entries[i].PageKey())
	})

	if start != nil {
		kept := entries[:0]
		for _, e := range entries {
			if e.PageKey().Before(*start) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// CountEntries reports how many entries ownerID has; used by tests.
func (r *MemoryNewsfeedRepository) CountEntries(ownerID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[ownerID])
}
