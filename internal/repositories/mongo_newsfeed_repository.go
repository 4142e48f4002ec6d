package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/anonto42/nano-feed/backend/internal/rowkey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewsfeedSpec declares the wide-column feed-entry row layout: keyed by
// (owner_id, created_at, post_id), no non-key columns. The row key is fully
// determined by the entry, so replayed writes land on the same key and
// upserting is naturally idempotent.
var NewsfeedSpec = rowkey.Spec{
	KeyFields: []string{"owner_id", "created_at", "post_id"},
}

type mongoFeedRow struct {
	RowKey    string    `bson:"_id"`
	OwnerID   uint      `bson:"owner_id"`
	PostID    string    `bson:"post_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoNewsfeedRepository implements NewsfeedRepository on the wide-column
// backend.
type MongoNewsfeedRepository struct {
	collection *mongo.Collection
}

// NewMongoNewsfeedRepository creates a new MongoNewsfeedRepository
func NewMongoNewsfeedRepository(db *mongo.Database) *MongoNewsfeedRepository {
	return &MongoNewsfeedRepository{collection: db.Collection("newsfeeds")}
}

func (r *MongoNewsfeedRepository) UpsertEntry(ctx context.Context, entry *models.FeedEntry) (bool, error) {
	vals := rowkey.Values{
		"owner_id":   entry.OwnerID,
		"created_at": entry.CreatedAt,
		"post_id":    entry.PostID,
	}
	key, err := NewsfeedSpec.RowKey(vals)
	if err != nil {
		return false, err
	}
	row := mongoFeedRow{
		RowKey:    key,
		OwnerID:   entry.OwnerID,
		PostID:    entry.PostID,
		CreatedAt: entry.CreatedAt,
	}
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, row, options.Replace().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoNewsfeedRepository) ListEntries(ctx context.Context, ownerID uint, start *pagination.Cursor, limit int) ([]models.FeedEntry, error) {
	low, high, err := NewsfeedSpec.PrefixBounds(rowkey.Values{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	bounds := bson.M{"$gte": low, "$lt": high}
	if start != nil {
		// resume strictly below the cursor's row key
		startKey := strings.Join([]string{
			rowkey.EncodeComponent(ownerID),
			rowkey.EncodeComponent(start.CreatedAt),
			start.ID,
		}, ":")
		bounds["$lt"] = startKey
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := r.collection.Find(ctx, bson.M{"_id": bounds}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []mongoFeedRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	entries := make([]models.FeedEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.FeedEntry{
			OwnerID:   row.OwnerID,
			PostID:    row.PostID,
			CreatedAt: row.CreatedAt,
		}
	}
	return entries, nil
}
