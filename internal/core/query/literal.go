package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayouts are tried in order when a literal is converted to time.Time.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses s with the first matching layout in DateLayouts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a recognised date", ErrConversion, s)
}

// ConvertLiteral converts a string literal to t with pointers unwrapped.
func ConvertLiteral(t reflect.Type, s string) (reflect.Value, error) {
	base, _ := Indirect(t)

	switch base {
	case timeType:
		tm, err := ParseTime(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tm), nil
	case uuidType:
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		return reflect.ValueOf(id), nil
	case decimalType:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		return reflect.ValueOf(d), nil
	}

	v := reflect.New(base).Elem()
	switch base.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, base.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, base.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), base.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		v.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("%w: cannot convert %q to %s", ErrConversion, s, base)
	}
	return v, nil
}

// FormatLiteral renders a value the way ConvertLiteral reads it back.
func FormatLiteral(v reflect.Value) string {
	v = deref(v)
	if !v.IsValid() {
		return ""
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(time.RFC3339Nano)
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits())
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.String:
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}

// coerce converts a filter value to the base type of a source field. Values
// of a different kind take a round trip through their string form.
func coerce(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	v = deref(v)
	base, _ := Indirect(target)
	if !v.IsValid() {
		return reflect.Value{}, nil
	}
	if v.Type() == base {
		return v, nil
	}
	if sameFamily(v.Kind(), base.Kind()) && v.Type().ConvertibleTo(base) {
		return v.Convert(base), nil
	}
	return ConvertLiteral(base, FormatLiteral(v))
}

func sameFamily(a, b reflect.Kind) bool {
	return kindFamily(a) != 0 && kindFamily(a) == kindFamily(b)
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	}
	return 0
}

// deref follows pointers and interfaces; a nil along the way yields an
// invalid Value.
func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
