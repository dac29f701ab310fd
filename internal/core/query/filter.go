package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// BuildFilter turns the populated fields of spec into a predicate over elem.
// Criteria are folded in field declaration order. A nil Node means no
// criterion applied.
//
// Fields whose name matches no field of elem are skipped, as are fields of an
// unsupported category. Conversion failures and unknown nested paths follow
// the configured Policy.
func BuildFilter(elem reflect.Type, spec any, opts ...Option) (Node, error) {
	o := newOptions(opts)

	sv := deref(reflect.ValueOf(spec))
	if !sv.IsValid() {
		return nil, nil
	}
	if sv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidSpec, sv.Type())
	}

	fields := Describe(sv.Type())
	modes := dateModesOf(sv, fields)
	b := &filterBuilder{elem: elem, modes: modes}

	var acc Node
	for _, d := range fields {
		if d.Skip || d.Type == dateModesType {
			continue
		}
		fv, err := sv.FieldByIndexErr(d.Index)
		if err != nil || !present(fv) {
			continue
		}

		clause, err := b.clause(d, fv)
		if err != nil {
			if o.policy == Strict {
				return nil, err
			}
			o.logger.Debug("dropping filter criterion", "field", d.Name, "error", err)
			continue
		}
		acc = Combine(o.connective, acc, clause)
	}
	return acc, nil
}

// DynamicFilter applies every populated field of spec to src.
func DynamicFilter[T any](src Queryable[T], spec any, opts ...Option) (Queryable[T], error) {
	node, err := BuildFilter(elementType[T](), spec, opts...)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return src, nil
	}
	return src.Where(node), nil
}

// Where applies the single criterion "field op literal" to src.
func Where[T any](src Queryable[T], field, op, literal string) (Queryable[T], error) {
	path, err := ResolvePath(elementType[T](), field)
	if err != nil {
		return nil, err
	}
	node, err := Apply(path, op, literal)
	if err != nil {
		return nil, err
	}
	return src.Where(node), nil
}

type filterBuilder struct {
	elem  reflect.Type
	modes DateModes
	dates int
}

func (b *filterBuilder) clause(d FieldDescriptor, fv reflect.Value) (Node, error) {
	if d.Category == CategoryUnsupported {
		return nil, nil
	}
	if d.Category == CategoryDateRange {
		return b.dateRanges(d, deref(fv))
	}

	mode := d.DateMode
	if d.Category == CategoryDateTime && d.Operator == "" && mode == "" {
		mode = b.modes.At(b.dates)
		b.dates++
	}

	target := d.TargetPath()
	path, err := ResolvePath(b.elem, target)
	if err != nil {
		if !strings.Contains(target, ".") {
			return nil, nil
		}
		return nil, err
	}

	var op Operator
	if d.Operator != "" {
		if op, err = ParseOperator(d.Operator); err != nil {
			return nil, fieldError(d.Name, typeName(b.elem), err)
		}
	}

	kind, _ := Classify(path.Type())
	switch {
	case kind == CategoryEnum && (op == "" || op == OpEqual) &&
		(d.Category == CategoryEnum || d.Category == CategoryString || d.Category == CategoryInteger):
		return enumClause(path, fv)
	case d.Category == CategoryString && op == "":
		op = OpLike
	case d.Category == CategoryDateTime && op == "":
		parsed, _ := ParseDateMode(string(mode))
		return ExpandDate(path, deref(fv).Interface().(time.Time), parsed)
	}
	if op == "" {
		op = OpEqual
	}
	return applyValue(path, op, fv)
}

func (b *filterBuilder) dateRanges(d FieldDescriptor, v reflect.Value) (Node, error) {
	var ranges DateRanges
	switch r := v.Interface().(type) {
	case DateRange:
		ranges = DateRanges{r}
	case DateRanges:
		ranges = r
	}

	var nodes []Node
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, fieldError(d.Name, typeName(b.elem), err)
		}
		n, err := ExpandRange(b.elem, d.TargetPath(), r)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return AllOf(nodes...), nil
}

// enumClause matches an enumeration by numeric value or by name. A name that
// is not a number only matches by name.
func enumClause(path Path, fv reflect.Value) (Node, error) {
	byName := guarded(path, Compare{
		Path:   path,
		Op:     OpEqual,
		Value:  fmt.Sprint(deref(fv).Interface()),
		AsText: true,
	})
	byNumber, err := applyValue(path, OpEqual, fv)
	if err != nil {
		if deref(fv).Kind() == reflect.String {
			return byName, nil
		}
		return nil, err
	}
	return AnyOf(byNumber, byName), nil
}

func dateModesOf(sv reflect.Value, fields []FieldDescriptor) DateModes {
	for _, d := range fields {
		if d.Type != dateModesType {
			continue
		}
		if fv, err := sv.FieldByIndexErr(d.Index); err == nil {
			return fv.Interface().(DateModes)
		}
	}
	return nil
}

// present reports whether a filter field carries a criterion.
func present(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return !v.IsNil()
	case reflect.Slice:
		return v.Len() > 0
	}
	return !v.IsZero()
}

func elementType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
