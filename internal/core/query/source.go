package query

import (
	"context"
	"reflect"
	"sort"
)

// Queryable is an ordered collection that accepts filter, order and slice
// instructions and materializes them on demand. Implementations must not
// mutate the receiver; every instruction returns a new value.
type Queryable[T any] interface {
	Where(n Node) Queryable[T]
	OrderBy(s SortSpec) Queryable[T]
	Skip(n int) Queryable[T]
	Take(n int) Queryable[T]
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]T, error)
}

type stageKind int

const (
	stageWhere stageKind = iota
	stageOrder
	stageSkip
	stageTake
)

type stage struct {
	kind stageKind
	node Node
	sort SortSpec
	n    int
}

// Slice is an in-memory Queryable. Instructions are recorded and replayed in
// order on every Count or List; the backing slice is never modified.
type Slice[T any] struct {
	items  []T
	stages []stage
}

// FromSlice wraps items.
func FromSlice[T any](items []T) *Slice[T] {
	return &Slice[T]{items: items}
}

func (s *Slice[T]) with(st stage) *Slice[T] {
	stages := make([]stage, 0, len(s.stages)+1)
	stages = append(append(stages, s.stages...), st)
	return &Slice[T]{items: s.items, stages: stages}
}

func (s *Slice[T]) Where(n Node) Queryable[T] {
	if n == nil {
		return s
	}
	return s.with(stage{kind: stageWhere, node: n})
}

func (s *Slice[T]) OrderBy(spec SortSpec) Queryable[T] {
	return s.with(stage{kind: stageOrder, sort: spec})
}

func (s *Slice[T]) Skip(n int) Queryable[T] {
	return s.with(stage{kind: stageSkip, n: n})
}

func (s *Slice[T]) Take(n int) Queryable[T] {
	return s.with(stage{kind: stageTake, n: n})
}

func (s *Slice[T]) Count(ctx context.Context) (int, error) {
	items, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Slice[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]T, len(s.items))
	copy(out, s.items)

	for _, st := range s.stages {
		switch st.kind {
		case stageWhere:
			match := Compile[T](st.node)
			kept := out[:0:0]
			for _, item := range out {
				if match(item) {
					kept = append(kept, item)
				}
			}
			out = kept
		case stageOrder:
			spec := st.sort
			sort.SliceStable(out, func(i, j int) bool {
				a := reflect.ValueOf(&out[i]).Elem()
				b := reflect.ValueOf(&out[j]).Elem()
				return spec.compare(a, b) < 0
			})
		case stageSkip:
			n := min(max(st.n, 0), len(out))
			out = out[n:]
		case stageTake:
			n := min(max(st.n, 0), len(out))
			out = out[:n]
		}
	}
	return out, nil
}
