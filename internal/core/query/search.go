package query

import "reflect"

// FullTextSearch keeps the elements where any searchable top-level field
// contains term in its string form. An empty term, or an element type
// without searchable fields, leaves src unchanged.
func FullTextSearch[T any](src Queryable[T], term string) Queryable[T] {
	node := SearchNode(elementType[T](), term)
	if node == nil {
		return src
	}
	return src.Where(node)
}

// SearchNode builds the predicate used by FullTextSearch.
func SearchNode(elem reflect.Type, term string) Node {
	if term == "" {
		return nil
	}
	var nodes []Node
	for _, d := range Describe(elem) {
		if d.Skip || !d.Category.Searchable() {
			continue
		}
		path := Path{Root: elem, Segments: []Segment{{
			Name:     d.Name,
			JSONName: d.JSONName,
			Index:    d.Index,
			Type:     d.Type,
		}}}
		nodes = append(nodes, Compare{
			Path:   path,
			Op:     OpLike,
			Value:  term,
			AsText: d.Category != CategoryString,
		})
	}
	return AnyOf(nodes...)
}
