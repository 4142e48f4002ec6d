// Package feedcache keeps a bounded, advisory copy of each user's newest
// feed entries in Redis. The fan-out path pushes into it and the read path
// serves from it; anything the cache cannot prove it has falls back to the
// durable feed store. Losing the cache never loses data.
package feedcache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/redis/go-redis/v9"
)

// FeedCache is a capped per-user reverse chronological list.
type FeedCache interface {
	// Push prepends one entry to the owner's cached timeline, trimming the
	// oldest entries past the cap. Pushing to a cold (absent) key is a
	// no-op: the key is rebuilt from the durable store on the next read.
	Push(ctx context.Context, ownerID uint, entry models.FeedEntry) error
	// Page returns up to limit entries strictly older than start, newest
	// first. ok is false when the cache cannot prove completeness for the
	// requested range: the key is cold, or the range may extend past the
	// trim bound.
	Page(ctx context.Context, ownerID uint, start *pagination.Cursor, limit int) (entries []models.FeedEntry, ok bool, err error)
	// Refill replaces the owner's cached timeline with the given entries
	// (the newest ones from the durable store, at most the cap).
	Refill(ctx context.Context, ownerID uint, entries []models.FeedEntry) error
}

// RedisFeedCache implements FeedCache on a Redis sorted set per user, scored
// by the entry's created-at milliseconds.
type RedisFeedCache struct {
	client *redis.Client
	cap    int
	ttl    time.Duration
}

// NewRedisFeedCache creates a new RedisFeedCache with the given list cap.
func NewRedisFeedCache(client *redis.Client, listCap int, ttl time.Duration) *RedisFeedCache {
	return &RedisFeedCache{client: client, cap: listCap, ttl: ttl}
}

func feedKey(ownerID uint) string {
	return fmt.Sprintf("newsfeed:%d", ownerID)
}

func member(entry models.FeedEntry) string {
	return fmt.Sprintf("%019d:%s", entry.CreatedAt.UnixNano(), entry.PostID)
}

func parseMember(ownerID uint, raw string) (models.FeedEntry, bool) {
	nanos, postID, found := strings.Cut(raw, ":")
	if !found {
		return models.FeedEntry{}, false
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return models.FeedEntry{}, false
	}
	return models.FeedEntry{
		OwnerID:   ownerID,
		PostID:    postID,
		CreatedAt: time.Unix(0, n).UTC(),
	}, true
}

func (c *RedisFeedCache) Push(ctx context.Context, ownerID uint, entry models.FeedEntry) error {
	key := feedKey(ownerID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(entry.CreatedAt.UnixMilli()),
		Member: member(entry),
	})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-(c.cap + 1)))
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisFeedCache) Page(ctx context.Context, ownerID uint, start *pagination.Cursor, limit int) ([]models.FeedEntry, bool, error) {
	key := feedKey(ownerID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	rangeBy := &redis.ZRangeBy{Min: "-inf", Max: "+inf", Offset: 0, Count: int64(limit)}
	if start != nil {
		rangeBy.Max = "(" + strconv.FormatInt(start.CreatedAt.UnixMilli(), 10)
	}
	raw, err := c.client.ZRevRangeByScore(ctx, key, rangeBy).Result()
	if err != nil {
		return nil, false, err
	}

	if len(raw) < limit {
		size, err := c.client.ZCard(ctx, key).Result()
		if err != nil {
			return nil, false, err
		}
		// A full list may have been trimmed past the requested range;
		// only the durable store knows what lies beyond.
		if size >= int64(c.cap) {
			return nil, false, nil
		}
	}

	entries := make([]models.FeedEntry, 0, len(raw))
	for _, m := range raw {
		if entry, ok := parseMember(ownerID, m); ok {
			entries = append(entries, entry)
		}
	}
	return entries, true, nil
}

func (c *RedisFeedCache) Refill(ctx context.Context, ownerID uint, entries []models.FeedEntry) error {
	key := feedKey(ownerID)
	if len(entries) > c.cap {
		entries = entries[:c.cap]
	}
	members := make([]redis.Z, len(entries))
	for i, entry := range entries {
		members[i] = redis.Z{
			Score:  float64(entry.CreatedAt.UnixMilli()),
			Member: member(entry),
		}
	}
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
