package query

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// textLayout is the string form of date-time values in text comparisons,
// rendered in UTC.
const textLayout = "2006-01-02 15:04:05"

// Eval evaluates n against one element. A nil node matches everything.
func Eval(n Node, elem reflect.Value) bool {
	switch n := n.(type) {
	case nil:
		return true
	case Compare:
		return n.eval(elem)
	case NotNull:
		v, ok := n.Path.Get(elem)
		return ok && deref(v).IsValid()
	case Logical:
		if n.Op == Or {
			return Eval(n.Left, elem) || Eval(n.Right, elem)
		}
		return Eval(n.Left, elem) && Eval(n.Right, elem)
	case Not:
		return !Eval(n.Node, elem)
	}
	return false
}

// Compile lowers a predicate tree into a closure over T.
func Compile[T any](n Node) func(T) bool {
	if n == nil {
		return func(T) bool { return true }
	}
	return func(item T) bool {
		return Eval(n, reflect.ValueOf(&item).Elem())
	}
}

func (c Compare) eval(elem reflect.Value) bool {
	raw, ok := c.Path.Get(elem)
	if !ok {
		return false
	}
	field := deref(raw)

	if c.Value == nil {
		switch c.Op {
		case OpEqual:
			return !field.IsValid()
		case OpNotEqual, OpLike:
			return field.IsValid()
		}
		return false
	}
	if !field.IsValid() {
		return false
	}

	if c.AsText || c.Op == OpLike || c.Op == OpNotLike {
		return compareText(textOf(field), c.Op, fmt.Sprint(c.Value))
	}

	value := deref(reflect.ValueOf(c.Value))
	switch c.Op {
	case OpAnd:
		return field.Kind() == reflect.Bool && value.Kind() == reflect.Bool && field.Bool() && value.Bool()
	case OpOr:
		return field.Kind() == reflect.Bool && value.Kind() == reflect.Bool && (field.Bool() || value.Bool())
	}

	cmp, ok := compareValues(field, value)
	if !ok {
		return false
	}
	return holds(c.Op, cmp)
}

func compareText(text string, op Operator, literal string) bool {
	switch op {
	case OpLike:
		return strings.Contains(text, literal)
	case OpNotLike:
		return !strings.Contains(text, literal)
	}
	return holds(op, strings.Compare(text, literal))
}

func holds(op Operator, cmp int) bool {
	switch op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpGreater:
		return cmp > 0
	case OpLessOrEqual:
		return cmp <= 0
	case OpGreaterOrEqual:
		return cmp >= 0
	}
	return false
}

// textOf is the string representation used by LIKE and text comparisons.
func textOf(v reflect.Value) string {
	switch v.Type() {
	case timeType:
		return v.Interface().(time.Time).UTC().Format(textLayout)
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits())
	}
	return fmt.Sprint(v.Interface())
}

// compareValues orders two non-null values of compatible types.
func compareValues(a, b reflect.Value) (int, bool) {
	if a.Type() == timeType && b.Type() == timeType {
		return a.Interface().(time.Time).Compare(b.Interface().(time.Time)), true
	}
	if a.Type() == decimalType && b.Type() == decimalType {
		return a.Interface().(decimal.Decimal).Cmp(b.Interface().(decimal.Decimal)), true
	}
	if a.Type() == uuidType && b.Type() == uuidType {
		x, y := a.Interface().(uuid.UUID), b.Interface().(uuid.UUID)
		return bytes.Compare(x[:], y[:]), true
	}

	switch {
	case isInt(a.Kind()) && isInt(b.Kind()):
		return cmpOrdered(a.Int(), b.Int()), true
	case isUint(a.Kind()) && isUint(b.Kind()):
		return cmpOrdered(a.Uint(), b.Uint()), true
	case isNumber(a.Kind()) && isNumber(b.Kind()):
		return cmpOrdered(toFloat(a), toFloat(b)), true
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return strings.Compare(a.String(), b.String()), true
	case a.Kind() == reflect.Bool && b.Kind() == reflect.Bool:
		return cmpOrdered(boolRank(a.Bool()), boolRank(b.Bool())), true
	}
	return 0, false
}

func cmpOrdered[N int64 | uint64 | float64 | int](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	}
	return v.Float()
}
