package models

import (
	"time"

	"github.com/anonto42/nano-feed/backend/internal/pagination"
)

// FeedEntry means "this post appears in this user's timeline". One entry is
// written per follower (plus the author) when a post fans out. CreatedAt is
// the post's own timestamp, not the fan-out time, so readers sort correctly
// even when batches land out of order. Entries are never updated and never
// deleted; unfollowing leaves history in place.
type FeedEntry struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	OwnerID   uint      `json:"owner_id" gorm:"uniqueIndex:idx_feed_owner_post,priority:1;index:idx_feed_owner_created,priority:1"`
	PostID    string    `json:"post_id" gorm:"uniqueIndex:idx_feed_owner_post,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_feed_owner_created,priority:2"`
}

// PageKey places the entry in the owner's reverse chronological timeline.
func (f FeedEntry) PageKey() pagination.Cursor {
	return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.PostID}
}
