package repositories

import (
	"context"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsfeedRepository is the durable feed-entry store. Writes are idempotent
// upserts on (owner_id, post_id), which is what makes at-least-once fan-out
// delivery safe: replaying a batch produces exactly the same rows.
type NewsfeedRepository interface {
	// UpsertEntry writes one feed entry; created reports whether the row
	// was new. Writing an existing (owner, post) pair is a no-op.
	UpsertEntry(ctx context.Context, entry *models.FeedEntry) (created bool, err error)
	// ListEntries returns up to limit of ownerID's entries newest first,
	// strictly older than start when start is non-nil.
	ListEntries(ctx context.Context, ownerID uint, start *pagination.Cursor, limit int) ([]models.FeedEntry, error)
}

// PostgresNewsfeedRepository implements NewsfeedRepository for PostgreSQL
type PostgresNewsfeedRepository struct {
	db *gorm.DB
}

// NewPostgresNewsfeedRepository creates a new PostgresNewsfeedRepository
func NewPostgresNewsfeedRepository(db *gorm.DB) *PostgresNewsfeedRepository {
	return &PostgresNewsfeedRepository{db: db}
}

func (r *PostgresNewsfeedRepository) UpsertEntry(ctx context.Context, entry *models.FeedEntry) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "post_id"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresNewsfeedRepository) ListEntries(ctx context.Context, ownerID uint, start *pagination.Cursor, limit int) ([]models.FeedEntry, error) {
	db := r.db.WithContext(ctx).Model(&models.FeedEntry{}).Where("owner_id = ?", ownerID)
	if start != nil {
		db = db.Where("created_at < ? OR (created_at = ? AND post_id < ?)",
			start.CreatedAt, start.CreatedAt, start.ID)
	}
	db = db.Order("created_at DESC, post_id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	var entries []models.FeedEntry
	if err := db.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
