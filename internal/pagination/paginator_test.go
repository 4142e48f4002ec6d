package pagination

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// row is a minimal Keyed item for paginator tests.
type row struct {
	createdAt time.Time
	id        string
}

func (r row) PageKey() Cursor {
	return Cursor{CreatedAt: r.createdAt, ID: r.id}
}

// makeRows builds n rows newest first, one second apart.
func makeRows(n int) []row {
	base := time.Unix(1700000000, 0).UTC()
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{
			createdAt: base.Add(-time.Duration(i) * time.Second),
			id:        fmt.Sprintf("row-%04d", n-i),
		}
	}
	return rows
}

// fetchFrom serves pages out of a fixed newest-first slice the way a backend
// would: strictly older than start, at most limit items.
func fetchFrom(rows []row) func(start *Cursor, limit int) ([]row, error) {
	return func(start *Cursor, limit int) ([]row, error) {
		var out []row
		for _, r := range rows {
			if start != nil && !r.PageKey().Before(*start) {
				continue
			}
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
		return out, nil
	}
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-3))
	assert.Equal(t, 5, ClampPageSize(5))
	assert.Equal(t, MaxPageSize, ClampPageSize(MaxPageSize))
	assert.Equal(t, MaxPageSize, ClampPageSize(500))
}

func TestPaginateFirstPage(t *testing.T) {
	rows := makeRows(30)

	page, err := Paginate(Request{PageSize: 10}, fetchFrom(rows))
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.True(t, page.HasNext)
	require.NotEmpty(t, page.NextCursor)

	// the cursor names the last returned item
	cur, err := DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[9].id, cur.ID)
}

func TestPaginateLastPageHasNoCursor(t *testing.T) {
	rows := makeRows(7)

	page, err := Paginate(Request{PageSize: 10}, fetchFrom(rows))
	require.NoError(t, err)
	assert.Len(t, page.Items, 7)
	assert.False(t, page.HasNext)
	assert.Empty(t, page.NextCursor)
}

func TestPaginateWalksToExhaustion(t *testing.T) {
	rows := makeRows(45)
	fetch := fetchFrom(rows)

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := Paginate(Request{Cursor: cursor, PageSize: 20}, fetch)
		require.NoError(t, err)
		pages++
		for _, r := range page.Items {
			assert.False(t, seen[r.id], "item %s returned twice", r.id)
			seen[r.id] = true
		}
		if !page.HasNext {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 45)
}

func TestPaginateTiedTimestamps(t *testing.T) {
	// every row shares one timestamp; the ID tiebreak must keep the walk
	// moving without skips or repeats
	at := time.Unix(1700000000, 0).UTC()
	rows := make([]row, 9)
	for i := range rows {
		rows[i] = row{createdAt: at, id: fmt.Sprintf("row-%04d", 9-i)}
	}
	fetch := fetchFrom(rows)

	var collected []string
	cursor := ""
	for {
		page, err := Paginate(Request{Cursor: cursor, PageSize: 4}, fetch)
		require.NoError(t, err)
		for _, r := range page.Items {
			collected = append(collected, r.id)
		}
		if !page.HasNext {
			break
		}
		cursor = page.NextCursor
	}

	require.Len(t, collected, 9)
	for i, r := range rows {
		assert.Equal(t, r.id, collected[i])
	}
}

func TestPaginateRejectsBadCursor(t *testing.T) {
	_, err := Paginate(Request{Cursor: "not-a-cursor!", PageSize: 10}, fetchFrom(makeRows(3)))
	assert.Error(t, err)
}

func TestPaginateWrapsFetchErrors(t *testing.T) {
	boom := errors.New("backend down")
	_, err := Paginate(Request{PageSize: 10}, func(start *Cursor, limit int) ([]row, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
