package query

import (
	"reflect"
	"strings"
)

const (
	Ascending  = "ascending"
	Descending = "descending"
)

// SortSpec orders a source by the value at Path.
type SortSpec struct {
	Path       Path
	Descending bool
}

// NormalizeOrder maps asc/ascending and desc/descending (any case) to a
// direction. Other tokens fall back to defaultOrder, and an invalid default
// falls back to ascending.
func NormalizeOrder(order, defaultOrder string) (descending bool) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "asc", Ascending:
		return false
	case "desc", Descending:
		return true
	}
	switch strings.ToLower(strings.TrimSpace(defaultOrder)) {
	case "desc", Descending:
		return true
	}
	return false
}

// ResolveSort validates field against elem. The boolean is false when field
// is empty, meaning no ordering was requested.
func ResolveSort(elem reflect.Type, field, order string, defaultOrder ...string) (SortSpec, bool, error) {
	if strings.TrimSpace(field) == "" {
		return SortSpec{}, false, nil
	}
	path, err := ResolvePath(elem, field)
	if err != nil {
		return SortSpec{}, false, err
	}
	def := Ascending
	if len(defaultOrder) > 0 {
		def = defaultOrder[0]
	}
	return SortSpec{Path: path, Descending: NormalizeOrder(order, def)}, true, nil
}

// DynamicSort orders src by field. An empty field leaves src untouched; an
// unknown one fails with ErrUnknownField.
func DynamicSort[T any](src Queryable[T], field, order string, defaultOrder ...string) (Queryable[T], error) {
	spec, ok, err := ResolveSort(elementType[T](), field, order, defaultOrder...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return src, nil
	}
	return src.OrderBy(spec), nil
}

// Key extracts the sort value of elem, boxed. Null values yield nil.
func (s SortSpec) Key(elem any) any {
	v, ok := s.Path.Get(reflect.ValueOf(elem))
	if !ok {
		return nil
	}
	v = deref(v)
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// compare orders two elements; nulls come first in ascending order.
func (s SortSpec) compare(a, b reflect.Value) int {
	x, okA := s.Path.Get(a)
	y, okB := s.Path.Get(b)
	if okA {
		x = deref(x)
	}
	if okB {
		y = deref(y)
	}

	var cmp int
	switch {
	case !x.IsValid() && !y.IsValid():
		cmp = 0
	case !x.IsValid():
		cmp = -1
	case !y.IsValid():
		cmp = 1
	default:
		var ok bool
		if cmp, ok = compareValues(x, y); !ok {
			cmp = strings.Compare(textOf(x), textOf(y))
		}
	}
	if s.Descending {
		return -cmp
	}
	return cmp
}
