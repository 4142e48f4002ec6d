// Package pagination implements endless-scroll pagination over reverse
// chronological collections. There is no total count and no page jumping:
// each response carries an opaque cursor naming the last returned item, and
// the next request resumes strictly past it. Backends translate the cursor
// into an indexed range predicate, never an OFFSET.
package pagination

import "fmt"

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Keyed is anything that can place itself in a reverse chronological scan.
type Keyed interface {
	PageKey() Cursor
}

// Request is an API-level page request.
type Request struct {
	Cursor   string
	PageSize int
}

// Page is one resolved page of items, newest first.
type Page[T Keyed] struct {
	Items      []T
	HasNext    bool
	NextCursor string
}

// ClampPageSize normalizes a client-supplied page size.
func ClampPageSize(n int) int {
	if n < 1 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Paginate resolves one page. fetch must return up to limit items strictly
// older than start (newest first); start is nil for the first page. One extra
// item is requested to detect whether more exist, so no separate count query
// is ever issued.
func Paginate[T Keyed](req Request, fetch func(start *Cursor, limit int) ([]T, error)) (*Page[T], error) {
	size := ClampPageSize(req.PageSize)

	var start *Cursor
	if req.Cursor != "" {
		c, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		start = c
	}

	items, err := fetch(start, size+1)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	page := &Page[T]{HasNext: len(items) > size}
	if page.HasNext {
		items = items[:size]
	}
	page.Items = items
	if page.HasNext && len(items) > 0 {
		page.NextCursor = items[len(items)-1].PageKey().Encode()
	}
	return page, nil
}
