package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator is a comparison token understood by the operator applier.
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLess           Operator = "<"
	OpGreater        Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
	OpAnd            Operator = "&&"
	OpOr             Operator = "||"
	OpLike           Operator = "LIKE"
	OpNotLike        Operator = "NOTLIKE"
)

// ParseOperator normalises a token. "=" is an alias of "==".
func ParseOperator(token string) (Operator, error) {
	t := strings.TrimSpace(token)
	switch strings.ToUpper(t) {
	case "==", "=":
		return OpEqual, nil
	case "!=":
		return OpNotEqual, nil
	case "<":
		return OpLess, nil
	case ">":
		return OpGreater, nil
	case "<=":
		return OpLessOrEqual, nil
	case ">=":
		return OpGreaterOrEqual, nil
	case "&&":
		return OpAnd, nil
	case "||":
		return OpOr, nil
	case "LIKE":
		return OpLike, nil
	case "NOTLIKE":
		return OpNotLike, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, token)
}

// Relational reports whether the operator orders its operands.
func (op Operator) Relational() bool {
	switch op {
	case OpLess, OpGreater, OpLessOrEqual, OpGreaterOrEqual:
		return true
	}
	return false
}

// Apply builds the test "path op literal". The literal is converted to the
// field's declared type; an empty literal compares against null instead.
// Intermediate members of a nested path are guarded by NotNull checks.
func Apply(path Path, token string, literal string) (Node, error) {
	op, err := ParseOperator(token)
	if err != nil {
		return nil, err
	}

	if literal == "" {
		return guarded(path, Compare{Path: path, Op: op}), nil
	}

	base, _ := Indirect(path.Type())

	switch op {
	case OpLike, OpNotLike:
		return guarded(path, Compare{
			Path:   path,
			Op:     op,
			Value:  literal,
			AsText: base.Kind() != reflect.String,
		}), nil
	case OpAnd, OpOr:
		if base.Kind() != reflect.Bool {
			return nil, fieldError(path.String(), typeName(path.Root), fmt.Errorf("%w: %s on %s", ErrUnsupportedOperator, op, base))
		}
	}

	v, err := ConvertLiteral(base, literal)
	if err != nil {
		return nil, fieldError(path.String(), typeName(path.Root), err)
	}
	return guarded(path, Compare{Path: path, Op: op, Value: v.Interface()}), nil
}

// applyValue is Apply for an already typed operand.
func applyValue(path Path, op Operator, value reflect.Value) (Node, error) {
	if op == OpLike || op == OpNotLike {
		return Apply(path, string(op), FormatLiteral(value))
	}
	v, err := coerce(value, path.Type())
	if err != nil {
		return nil, fieldError(path.String(), typeName(path.Root), err)
	}
	if !v.IsValid() {
		return guarded(path, Compare{Path: path, Op: op}), nil
	}
	return guarded(path, Compare{Path: path, Op: op, Value: v.Interface()}), nil
}

// guarded ANDs a NotNull check for every intermediate segment before leaf.
func guarded(path Path, leaf Node) Node {
	if path.Len() < 2 {
		return leaf
	}
	nodes := make([]Node, 0, path.Len())
	for i := 1; i < path.Len(); i++ {
		nodes = append(nodes, NotNull{Path: path.Prefix(i)})
	}
	return AllOf(append(nodes, leaf)...)
}
