package query

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the coarse comparison class a field type reduces to.
type Category int

const (
	CategoryUnsupported Category = iota
	CategoryString
	CategoryBoolean
	CategoryInteger
	CategoryDecimal
	CategoryIdentifier
	CategoryDateTime
	CategoryEnum
	CategoryDateRange
)

var categoryNames = map[Category]string{
	CategoryUnsupported: "unsupported",
	CategoryString:      "string",
	CategoryBoolean:     "boolean",
	CategoryInteger:     "integer",
	CategoryDecimal:     "decimal",
	CategoryIdentifier:  "identifier",
	CategoryDateTime:    "datetime",
	CategoryEnum:        "enum",
	CategoryDateRange:   "daterange",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Searchable reports whether FullTextSearch considers fields of this category.
func (c Category) Searchable() bool {
	switch c {
	case CategoryString, CategoryInteger, CategoryDecimal, CategoryIdentifier, CategoryDateTime:
		return true
	}
	return false
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	uuidType       = reflect.TypeOf(uuid.UUID{})
	decimalType    = reflect.TypeOf(decimal.Decimal{})
	dateRangeType  = reflect.TypeOf(DateRange{})
	dateRangesType = reflect.TypeOf(DateRanges{})
	dateModesType  = reflect.TypeOf(DateModes{})
	stringerType   = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// Indirect strips pointer wrappers and reports whether any were present.
func Indirect(t reflect.Type) (reflect.Type, bool) {
	nullable := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}
	return t, nullable
}

// Classify maps a declared field type to its Category. The result depends only
// on the type, never on a runtime value.
func Classify(t reflect.Type) (Category, bool) {
	base, nullable := Indirect(t)

	switch base {
	case timeType:
		return CategoryDateTime, nullable
	case uuidType:
		return CategoryIdentifier, nullable
	case decimalType:
		return CategoryDecimal, nullable
	case dateRangeType, dateRangesType:
		return CategoryDateRange, nullable
	}

	switch base.Kind() {
	case reflect.String:
		return CategoryString, nullable
	case reflect.Bool:
		return CategoryBoolean, nullable
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if isEnum(base) {
			return CategoryEnum, nullable
		}
		return CategoryInteger, nullable
	case reflect.Float32, reflect.Float64:
		return CategoryDecimal, nullable
	}

	return CategoryUnsupported, nullable
}

// isEnum treats named integer types with a String method as enumerations.
func isEnum(t reflect.Type) bool {
	if t.PkgPath() == "" {
		return false
	}
	return t.Implements(stringerType) || reflect.PointerTo(t).Implements(stringerType)
}
