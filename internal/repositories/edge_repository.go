package repositories

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/anonto42/nano-feed/backend/internal/rowkey"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by point lookups with no matching row. An empty
// filter result is not an error.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEdge marks a uniqueness violation on the edge pair. Backends
// translate it into the created=false result of CreateEdge rather than
// surfacing it.
var ErrDuplicateEdge = errors.New("edge already exists")

// EdgeView selects one of the two physical orderings of the follow graph.
type EdgeView int

const (
	// FollowingView is keyed by (from_user_id, created_at) and answers
	// "whom does this user follow".
	FollowingView EdgeView = iota
	// FollowerView is keyed by (to_user_id, created_at) and answers
	// "who follows this user".
	FollowerView
)

var (
	FollowingSpec = rowkey.Spec{
		KeyFields:   []string{"from_user_id", "created_at"},
		ValueFields: []string{"to_user_id"},
	}
	FollowerSpec = rowkey.Spec{
		KeyFields:   []string{"to_user_id", "created_at"},
		ValueFields: []string{"from_user_id"},
	}
)

// Spec returns the declared row layout of the view.
func (v EdgeView) Spec() rowkey.Spec {
	if v == FollowerView {
		return FollowerSpec
	}
	return FollowingSpec
}

func (v EdgeView) leadField() string {
	if v == FollowerView {
		return "to_user_id"
	}
	return "from_user_id"
}

// Counterpart returns the user on the value side of the view's key.
func (v EdgeView) Counterpart(e models.Edge) uint {
	if v == FollowerView {
		return e.FromUserID
	}
	return e.ToUserID
}

// EdgeQuery is a range scan over one view. UserID is the leading key prefix
// (0 scans the whole view). Start is an exclusive resume bound: with Reverse
// it acts as an upper bound, otherwise as a lower bound. Results are ordered
// by the view's composite key, ascending unless Reverse.
type EdgeQuery struct {
	View    EdgeView
	UserID  uint
	Start   *pagination.Cursor
	Limit   int
	Reverse bool
}

// EdgeRepository is the follow-graph store. Two interchangeable backends
// implement it (relational and wide-column) plus an in-memory one for tests;
// identical calls against identical data return identical results on all of
// them.
type EdgeRepository interface {
	// CreateEdge validates the row against both view specs and writes both
	// views. It upserts: created reports whether the pair was new. A
	// validation failure writes nothing.
	CreateEdge(ctx context.Context, edge *models.Edge) (created bool, err error)
	// GetEdge is a point lookup by the view's full composite key.
	GetEdge(ctx context.Context, view EdgeView, vals rowkey.Values) (*models.Edge, error)
	// FilterEdges is an ordered range scan; see EdgeQuery.
	FilterEdges(ctx context.Context, q EdgeQuery) ([]models.Edge, error)
	// DeleteEdge removes the pair from both views. Deleting a missing edge
	// is not an error.
	DeleteEdge(ctx context.Context, fromID, toID uint) error
	// CountFollowers counts edges pointing at userID.
	CountFollowers(ctx context.Context, userID uint) (int64, error)
}

func edgeValues(e *models.Edge) rowkey.Values {
	return rowkey.Values{
		"from_user_id": e.FromUserID,
		"to_user_id":   e.ToUserID,
		"created_at":   e.CreatedAt,
	}
}

// checkEdgeRow validates a prospective edge against both physical views
// before anything is written, so a rejected create leaves no row in either.
func checkEdgeRow(e *models.Edge) error {
	vals := edgeValues(e)
	if err := FollowerSpec.CheckRow(vals); err != nil {
		return err
	}
	return FollowingSpec.CheckRow(vals)
}

func uintValue(v interface{}) uint {
	switch x := v.(type) {
	case uint:
		return x
	case uint64:
		return uint(x)
	case int:
		return uint(x)
	case int64:
		return uint(x)
	default:
		return 0
	}
}

func timeValue(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func cursorTiebreak(c *pagination.Cursor) uint {
	if c == nil || c.ID == "" {
		return 0
	}
	n, err := strconv.ParseUint(c.ID, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// PostgresEdgeRepository implements EdgeRepository on the relational backend:
// one edges table with a unique (from,to) index and one composite index per
// view.
type PostgresEdgeRepository struct {
	db *gorm.DB
}

// NewPostgresEdgeRepository creates a new PostgresEdgeRepository
func NewPostgresEdgeRepository(db *gorm.DB) *PostgresEdgeRepository {
	return &PostgresEdgeRepository{db: db}
}

func (r *PostgresEdgeRepository) CreateEdge(ctx context.Context, edge *models.Edge) (bool, error) {
	if err := checkEdgeRow(edge); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
		DoNothing: true,
	}).Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresEdgeRepository) GetEdge(ctx context.Context, view EdgeView, vals rowkey.Values) (*models.Edge, error) {
	spec := view.Spec()
	if err := spec.CheckKey(vals); err != nil {
		return nil, err
	}
	var edge models.Edge
	err := r.db.WithContext(ctx).
		Where(view.leadField()+" = ? AND created_at = ?", uintValue(vals[view.leadField()]), timeValue(vals["created_at"])).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &edge, nil
}

func (r *PostgresEdgeRepository) FilterEdges(ctx context.Context, q EdgeQuery) ([]models.Edge, error) {
	if q.UserID != 0 {
		if err := q.View.Spec().CheckPrefix(rowkey.Values{q.View.leadField(): q.UserID}); err != nil {
			return nil, err
		}
	}
	db := r.db.WithContext(ctx).Model(&models.Edge{})
	if q.UserID != 0 {
		db = db.Where(q.View.leadField()+" = ?", q.UserID)
	}
	if q.Start != nil {
		t := q.Start.CreatedAt
		id := cursorTiebreak(q.Start)
		if q.Reverse {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", t, t, id)
		} else {
			db = db.Where("created_at > ? OR (created_at = ? AND id > ?)", t, t, id)
		}
	}
	dir := "ASC"
	if q.Reverse {
		dir = "DESC"
	}
	db = db.Order(q.View.leadField() + " " + dir + ", created_at " + dir + ", id " + dir)
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var edges []models.Edge
	if err := db.Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *PostgresEdgeRepository) DeleteEdge(ctx context.Context, fromID, toID uint) error {
	return r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromID, toID).
		Delete(&models.Edge{}).Error
}

func (r *PostgresEdgeRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Edge{}).Where("to_user_id = ?", userID).Count(&count).Error
	return count, err
}
