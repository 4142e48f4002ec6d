package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/rowkey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoEdgeRow is one denormalized view row. The _id is the sortable string
// row key built from the view's declared key fields plus the counterpart user
// id, so range scans over _id are range scans over the composite key and two
// edges sharing a lead id and a timestamp occupy distinct rows.
type mongoEdgeRow struct {
	RowKey     string    `bson:"_id"`
	FromUserID uint      `bson:"from_user_id"`
	ToUserID   uint      `bson:"to_user_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (r mongoEdgeRow) toEdge() models.Edge {
	return models.Edge{
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		CreatedAt:  r.CreatedAt,
	}
}

// MongoEdgeRepository implements EdgeRepository on the wide-column backend:
// two physically separate collections, one per view, written pairwise.
// Duplicate row-key writes are upserts, so the duplicate-pair check happens
// here before writing.
type MongoEdgeRepository struct {
	followings *mongo.Collection
	followers  *mongo.Collection
}

// NewMongoEdgeRepository creates a new MongoEdgeRepository
func NewMongoEdgeRepository(db *mongo.Database) *MongoEdgeRepository {
	return &MongoEdgeRepository{
		followings: db.Collection("graph_followings"),
		followers:  db.Collection("graph_followers"),
	}
}

func (r *MongoEdgeRepository) CreateEdge(ctx context.Context, edge *models.Edge) (bool, error) {
	if err := checkEdgeRow(edge); err != nil {
		return false, err
	}
	if err := r.checkPair(ctx, edge.FromUserID, edge.ToUserID); err != nil {
		if errors.Is(err, ErrDuplicateEdge) {
			return false, nil
		}
		return false, err
	}

	vals := edgeValues(edge)
	row := mongoEdgeRow{
		FromUserID: edge.FromUserID,
		ToUserID:   edge.ToUserID,
		CreatedAt:  edge.CreatedAt,
	}
	upsert := options.Replace().SetUpsert(true)

	key, err := viewRowKey(FollowingView, vals, edge.ToUserID)
	if err != nil {
		return false, err
	}
	row.RowKey = key
	if _, err := r.followings.ReplaceOne(ctx, bson.M{"_id": key}, row, upsert); err != nil {
		return false, fmt.Errorf("write following view: %w", err)
	}

	key, err = viewRowKey(FollowerView, vals, edge.FromUserID)
	if err != nil {
		return false, err
	}
	row.RowKey = key
	if _, err := r.followers.ReplaceOne(ctx, bson.M{"_id": key}, row, upsert); err != nil {
		return false, fmt.Errorf("write follower view: %w", err)
	}
	return true, nil
}

// viewRowKey builds the stored _id: the view's composite key with the
// counterpart user id appended as a final ordered component.
func viewRowKey(view EdgeView, vals rowkey.Values, counterpart uint) (string, error) {
	key, err := view.Spec().RowKey(vals)
	if err != nil {
		return "", err
	}
	return key + ":" + rowkey.EncodeComponent(counterpart), nil
}

// checkPair enforces at-most-one-edge-per-pair; the wide-column store has no
// uniqueness constraint on (from, to) so the caller level check stands in
// for it.
func (r *MongoEdgeRepository) checkPair(ctx context.Context, fromID, toID uint) error {
	n, err := r.followings.CountDocuments(ctx, bson.M{"from_user_id": fromID, "to_user_id": toID})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateEdge
	}
	return nil
}

func (r *MongoEdgeRepository) GetEdge(ctx context.Context, view EdgeView, vals rowkey.Values) (*models.Edge, error) {
	key, err := view.Spec().RowKey(vals)
	if err != nil {
		return nil, err
	}
	var row mongoEdgeRow
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	err = r.viewCollection(view).FindOne(ctx,
		bson.M{"_id": bson.M{"$gte": key + ":", "$lt": key + ";"}}, opts).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	edge := row.toEdge()
	return &edge, nil
}

func (r *MongoEdgeRepository) FilterEdges(ctx context.Context, q EdgeQuery) ([]models.Edge, error) {
	spec := q.View.Spec()
	bounds := bson.M{}
	if q.UserID != 0 {
		low, high, err := spec.PrefixBounds(rowkey.Values{q.View.leadField(): q.UserID})
		if err != nil {
			return nil, err
		}
		bounds["$gte"] = low
		bounds["$lt"] = high
	}
	if q.Start != nil && q.UserID != 0 {
		startKey, err := spec.RowKey(rowkey.Values{
			q.View.leadField(): q.UserID,
			"created_at":       q.Start.CreatedAt,
		})
		if err != nil {
			return nil, err
		}
		// the cursor tiebreak is this backend's counterpart id; with it the
		// resume is exclusive at exactly the cursor row, ties included
		pivot := startKey + ":"
		if tiebreak := cursorTiebreak(q.Start); tiebreak != 0 {
			pivot += rowkey.EncodeComponent(tiebreak)
		}
		if q.Reverse {
			bounds["$lt"] = pivot
		} else {
			bounds["$gt"] = pivot
			delete(bounds, "$gte")
		}
	}
	filter := bson.M{}
	if len(bounds) > 0 {
		filter["_id"] = bounds
	}

	dir := 1
	if q.Reverse {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: dir}})
	if q.Limit > 0 {
		opts = opts.SetLimit(int64(q.Limit))
	}
	cur, err := r.viewCollection(q.View).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []mongoEdgeRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	edges := make([]models.Edge, len(rows))
	for i, row := range rows {
		edge := row.toEdge()
		// cursors resume within one backend, so the counterpart id serves as
		// the page tiebreak here the way the surrogate row id does relationally
		edge.ID = q.View.Counterpart(edge)
		edges[i] = edge
	}
	return edges, nil
}

func (r *MongoEdgeRepository) DeleteEdge(ctx context.Context, fromID, toID uint) error {
	var row mongoEdgeRow
	err := r.followings.FindOne(ctx, bson.M{"from_user_id": fromID, "to_user_id": toID}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}
	vals := edgeValues(&models.Edge{FromUserID: fromID, ToUserID: toID, CreatedAt: row.CreatedAt})
	if _, err := r.followings.DeleteOne(ctx, bson.M{"_id": row.RowKey}); err != nil {
		return err
	}
	followerKey, err := viewRowKey(FollowerView, vals, fromID)
	if err != nil {
		return err
	}
	if _, err := r.followers.DeleteOne(ctx, bson.M{"_id": followerKey}); err != nil {
		return err
	}
	return nil
}

func (r *MongoEdgeRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return r.followers.CountDocuments(ctx, bson.M{"to_user_id": userID})
}

func (r *MongoEdgeRepository) viewCollection(view EdgeView) *mongo.Collection {
	if view == FollowerView {
		return r.followers
	}
	return r.followings
}
