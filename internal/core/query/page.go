package query

import (
	"context"
	"math"
)

const (
	DefaultLimitPaging = 50
	DefaultPaging      = 1
)

// PageSpec is a validated page window.
type PageSpec struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Offset is the number of elements before the window. It saturates at
// math.MaxInt so oversized pages yield an empty window.
func (p PageSpec) Offset() int {
	if p.Page <= 1 || p.Size < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// TotalPages is the number of windows needed for total elements.
func (p PageSpec) TotalPages(total int) int {
	if p.Size < 1 || total <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}

// NormalizePage clamps page and size. Rules apply in order: size above limit
// becomes limit, size below one becomes def, page below one becomes 1.
func NormalizePage(page, size, limit, def int) PageSpec {
	if size > limit {
		size = limit
	}
	if size < 1 {
		size = def
	}
	if page < 1 {
		page = 1
	}
	return PageSpec{Page: page, Size: size}
}

// PagingQueryable counts src and returns the requested window of it. The
// optional limits are the maximum size (default 50) and the fallback size
// (default 1). Counting and listing each traverse src.
func PagingQueryable[T any](ctx context.Context, src Queryable[T], page, size int, limits ...int) (int, Queryable[T], error) {
	limit, def := DefaultLimitPaging, DefaultPaging
	if len(limits) > 0 {
		limit = limits[0]
	}
	if len(limits) > 1 {
		def = limits[1]
	}
	p := NormalizePage(page, size, limit, def)

	total, err := src.Count(ctx)
	if err != nil {
		return 0, nil, err
	}
	return total, src.Skip(p.Offset()).Take(p.Size), nil
}
