package models

import (
	"strconv"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/pagination"
)

// Edge is a directed follow relationship: FromUserID follows ToUserID. The
// relational backend stores it once with two composite indexes; the
// wide-column backend materializes it into two denormalized views.
type Edge struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	FromUserID uint      `json:"from_user_id" gorm:"uniqueIndex:idx_edges_from_to,priority:1;index:idx_edges_following,priority:1"`
	ToUserID   uint      `json:"to_user_id" gorm:"uniqueIndex:idx_edges_from_to,priority:2;index:idx_edges_follower,priority:1"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_edges_following,priority:2;index:idx_edges_follower,priority:2"`
}

// PageKey places the edge in a reverse chronological scan of either view.
func (e Edge) PageKey() pagination.Cursor {
	id := ""
	if e.ID != 0 {
		id = strconv.FormatUint(uint64(e.ID), 10)
	}
	return pagination.Cursor{CreatedAt: e.CreatedAt, ID: id}
}
