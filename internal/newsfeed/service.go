// Package newsfeed implements fan-out-on-write feed delivery: when a post is
// created it is pushed into the timeline of the author and of every
// follower, inline for small follower counts and through batched background
// tasks for large ones. The read path serves recent pages from the feed
// cache and falls back to the durable feed store beyond the cache bound.
package newsfeed

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/feedcache"
	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/anonto42/nano-feed/backend/internal/queue"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
)

// Config bounds the dispatcher. SyncThreshold is the largest follower count
// delivered inline on the request path; BatchSize caps the follower slice of
// one background task; CacheSize is the feed cache list cap.
type Config struct {
	SyncThreshold int
	BatchSize     int
	CacheSize     int
}

// Service is the fan-out dispatcher and feed read service. It is stateless
// per invocation: retries and concurrent batches converge on the same final
// state because every delivery is an idempotent upsert.
type Service struct {
	edges repositories.EdgeRepository
	feeds repositories.NewsfeedRepository
	cache feedcache.FeedCache
	queue queue.TaskQueue
	cfg   Config
}

// NewService creates a new Service
func NewService(
	edges repositories.EdgeRepository,
	feeds repositories.NewsfeedRepository,
	cache feedcache.FeedCache,
	taskQueue queue.TaskQueue,
	cfg Config,
) *Service {
	if cfg.SyncThreshold <= 0 {
		cfg.SyncThreshold = 50
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 200
	}
	return &Service{edges: edges, feeds: feeds, cache: cache, queue: taskQueue, cfg: cfg}
}

// OnFollowCreated records a follow edge. It never triggers fan-out: the
// follower starts seeing the followee's posts from the next post onward.
func (s *Service) OnFollowCreated(ctx context.Context, edge *models.Edge) (bool, error) {
	return s.edges.CreateEdge(ctx, edge)
}

// OnUnfollow removes a follow edge. Previously fanned-out feed entries stay:
// feed history is append-only with respect to graph edits.
func (s *Service) OnUnfollow(ctx context.Context, fromID, toID uint) error {
	return s.edges.DeleteEdge(ctx, fromID, toID)
}

// GetNewsfeed resolves one page of ownerID's timeline, newest first. Pages
// within the cache bound are served from the cache; cold keys and pages past
// the bound go to the durable store, and a cold first page rewarms the
// cache.
func (s *Service) GetNewsfeed(ctx context.Context, ownerID uint, req pagination.Request) (*pagination.Page[models.FeedEntry], error) {
	return pagination.Paginate(req, func(start *pagination.Cursor, limit int) ([]models.FeedEntry, error) {
		entries, ok, err := s.cache.Page(ctx, ownerID, start, limit)
		if err != nil {
			// cache trouble costs a fallback read, nothing more
			log.Printf("feed cache read failed for user %d: %v", ownerID, err)
		} else if ok {
			return entries, nil
		}

		if start == nil {
			// fetch enough for the requested page even when it exceeds the
			// cache cap; only the capped head rewarms the cache
			fetchLimit := s.cfg.CacheSize
			if limit > fetchLimit {
				fetchLimit = limit
			}
			latest, err := s.feeds.ListEntries(ctx, ownerID, nil, fetchLimit)
			if err != nil {
				return nil, err
			}
			warm := latest
			if len(warm) > s.cfg.CacheSize {
				warm = warm[:s.cfg.CacheSize]
			}
			if err := s.cache.Refill(ctx, ownerID, warm); err != nil {
				log.Printf("feed cache refill failed for user %d: %v", ownerID, err)
			}
			if len(latest) > limit {
				latest = latest[:limit]
			}
			return latest, nil
		}
		return s.feeds.ListEntries(ctx, ownerID, start, limit)
	})
}

// GetFollowers resolves one page of userID's followers, newest first.
func (s *Service) GetFollowers(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[models.Edge], error) {
	return s.paginateEdges(ctx, repositories.FollowerView, userID, req)
}

// GetFollowings resolves one page of the users userID follows, newest first.
func (s *Service) GetFollowings(ctx context.Context, userID uint, req pagination.Request) (*pagination.Page[models.Edge], error) {
	return s.paginateEdges(ctx, repositories.FollowingView, userID, req)
}

func (s *Service) paginateEdges(ctx context.Context, view repositories.EdgeView, userID uint, req pagination.Request) (*pagination.Page[models.Edge], error) {
	return pagination.Paginate(req, func(start *pagination.Cursor, limit int) ([]models.Edge, error) {
		return s.edges.FilterEdges(ctx, repositories.EdgeQuery{
			View:    view,
			UserID:  userID,
			Start:   start,
			Limit:   limit,
			Reverse: true,
		})
	})
}

// deliver writes one feed entry to the durable store and the cache. Safe to
// replay: the store upserts and the cache dedupes by member.
func (s *Service) deliver(ctx context.Context, ownerID uint, postID string, createdAt time.Time) error {
	entry := models.FeedEntry{OwnerID: ownerID, PostID: postID, CreatedAt: createdAt}
	if _, err := s.feeds.UpsertEntry(ctx, &entry); err != nil {
		return err
	}
	if err := s.cache.Push(ctx, ownerID, entry); err != nil {
		log.Printf("feed cache push failed for user %d: %v", ownerID, err)
	}
	return nil
}

// deliverMany fans one post out to a set of owners, continuing past
// individual failures so a retry only needs to redo the failed writes.
func (s *Service) deliverMany(ctx context.Context, ownerIDs []uint, postID string, createdAt time.Time) error {
	var errs []error
	for _, ownerID := range ownerIDs {
		if err := s.deliver(ctx, ownerID, postID, createdAt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
