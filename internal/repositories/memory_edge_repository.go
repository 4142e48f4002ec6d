package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/rowkey"
)

// MemoryEdgeRepository implements EdgeRepository in memory. It exists for
// tests and local development; it follows the same upsert and ordering
// semantics as the durable backends.
type MemoryEdgeRepository struct {
	mu     sync.RWMutex
	edges  []models.Edge
	nextID uint
}

// NewMemoryEdgeRepository creates a new MemoryEdgeRepository
func NewMemoryEdgeRepository() *MemoryEdgeRepository {
	return &MemoryEdgeRepository{nextID: 1}
}

func (r *MemoryEdgeRepository) CreateEdge(_ context.Context, edge *models.Edge) (bool, error) {
	if err := checkEdgeRow(edge); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.edges {
		if e.FromUserID == edge.FromUserID && e.ToUserID == edge.ToUserID {
			return false, nil
		}
	}
	edge.ID = r.nextID
	r.nextID++
	r.edges = append(r.edges, *edge)
	return true, nil
}

func (r *MemoryEdgeRepository) GetEdge(_ context.Context, view EdgeView, vals rowkey.Values) (*models.Edge, error) {
	if err := view.Spec().CheckKey(vals); err != nil {
		return nil, err
	}
	lead := uintValue(vals[view.leadField()])
	created := timeValue(vals["created_at"])

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.edges {
		if leadUser(view, e) == lead && e.CreatedAt.Equal(created) {
			found := e
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryEdgeRepository) FilterEdges(_ context.Context, q EdgeQuery) ([]models.Edge, error) {
	if q.UserID != 0 {
		if err := q.View.Spec().CheckPrefix(rowkey.Values{q.View.leadField(): q.UserID}); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	var matched []models.Edge
	for _, e := range r.edges {
		if q.UserID != 0 && leadUser(q.View, e) != q.UserID {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if leadUser(q.View, matched[i]) != leadUser(q.View, matched[j]) {
			return leadUser(q.View, matched[i]) < leadUser(q.View, matched[j])
		}
		return edgeLess(matched[i], matched[j])
	})

	if q.Start != nil {
		tiebreak := cursorTiebreak(q.Start)
		kept := matched[:0]
		for _, e := range matched {
			if q.Reverse {
				if e.CreatedAt.Before(q.Start.CreatedAt) ||
					(e.CreatedAt.Equal(q.Start.CreatedAt) && e.ID < tiebreak) {
					kept = append(kept, e)
				}
			} else {
				if e.CreatedAt.After(q.Start.CreatedAt) ||
					(e.CreatedAt.Equal(q.Start.CreatedAt) && e.ID > tiebreak) {
					kept = append(kept, e)
				}
			}
		}
		matched = kept
	}

	if q.Reverse {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (r *MemoryEdgeRepository) DeleteEdge(_ context.Context, fromID, toID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.edges {
		if e.FromUserID == fromID && e.ToUserID == toID {
			r.edges = append(r.edges[:i], r.edges[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryEdgeRepository) CountFollowers(_ context.Context, userID uint) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, e := range r.edges {
		if e.ToUserID == userID {
			n++
		}
	}
	return n, nil
}

func leadUser(view EdgeView, e models.Edge) uint {
	if view == FollowerView {
		return e.ToUserID
	}
	return e.FromUserID
}

func edgeLess(a, b models.Edge) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
