package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// DateMode selects how a date-time criterion is expanded into bounds.
type DateMode string

const (
	DateDefault        DateMode = ""
	DateEqual          DateMode = "eq"
	DateGreaterThan    DateMode = "gt"
	DateGreaterOrEqual DateMode = "gte"
	DateLessThan       DateMode = "lt"
	DateLessOrEqual    DateMode = "lte"
	DateRangeMode      DateMode = "r"
)

// ParseDateMode reads a mode token. Unknown tokens yield DateDefault and false.
func ParseDateMode(s string) (DateMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DateDefault, true
	case "eq", "equal":
		return DateEqual, true
	case "gt", "greaterthan":
		return DateGreaterThan, true
	case "gte", "greaterthanorequal":
		return DateGreaterOrEqual, true
	case "lt", "lessthan":
		return DateLessThan, true
	case "lte", "lessthanorequal":
		return DateLessOrEqual, true
	case "r", "range":
		return DateRangeMode, true
	}
	return DateDefault, false
}

// DateModes lists one mode per date-time criterion of a filter spec, in field
// declaration order. When the list is shorter than the number of criteria the
// last mode keeps applying.
type DateModes []DateMode

// ParseDateModes splits a comma separated list of mode tokens.
func ParseDateModes(s string) DateModes {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	modes := make(DateModes, 0, len(parts))
	for _, p := range parts {
		m, _ := ParseDateMode(p)
		modes = append(modes, m)
	}
	return modes
}

// At returns the mode for the i-th date-time criterion.
func (m DateModes) At(i int) DateMode {
	if len(m) == 0 {
		return DateDefault
	}
	if i >= len(m) {
		i = len(m) - 1
	}
	mode, _ := ParseDateMode(string(m[i]))
	return mode
}

// DateRange is a date criterion against a named target field. With the
// default or range mode both bounds are optional and applied independently;
// any other mode is applied to From.
type DateRange struct {
	Field string     `json:"field,omitempty"`
	From  *time.Time `json:"from,omitempty"`
	To    *time.Time `json:"to,omitempty"`
	Mode  DateMode   `json:"mode,omitempty"`
}

// UnmarshalJSON accepts bounds in any of the DateLayouts.
func (r *DateRange) UnmarshalJSON(b []byte) error {
	var raw struct {
		Field string   `json:"field"`
		From  *string  `json:"from"`
		To    *string  `json:"to"`
		Mode  DateMode `json:"mode"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := DateRange{Field: raw.Field, Mode: raw.Mode}
	for _, bound := range []struct {
		src *string
		dst **time.Time
	}{{raw.From, &out.From}, {raw.To, &out.To}} {
		if bound.src == nil || strings.TrimSpace(*bound.src) == "" {
			continue
		}
		t, err := ParseTime(*bound.src)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
		}
		*bound.dst = &t
	}
	*r = out
	return nil
}

// DateRanges holds several independent ranges.
type DateRanges []DateRange

// Validate rejects inverted ranges.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(UpperBound(*r.To)) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidDateRange,
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return nil
}

// ParseDateRanges reads "field,from,to;field,from,to". Either bound may be
// left empty.
func ParseDateRanges(s string) (DateRanges, error) {
	var ranges DateRanges
	for _, item := range strings.Split(s, ";") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q must be field,from,to", ErrInvalidDateRange, item)
		}
		r := DateRange{Field: strings.TrimSpace(parts[0]), Mode: DateRangeMode}
		for i, dst := range []**time.Time{&r.From, &r.To} {
			raw := strings.TrimSpace(parts[i+1])
			if raw == "" {
				continue
			}
			t, err := ParseTime(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
			}
			*dst = &t
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// EndOfDay is 23:59:59 on the day of t, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// UpperBound makes an upper bound inclusive of what it names: a date without
// a time of day covers the whole day, an instant covers its minute.
func UpperBound(t time.Time) time.Time {
	if hasClock(t) {
		return t.Add(time.Minute)
	}
	return EndOfDay(t)
}

func hasClock(t time.Time) bool {
	h, m, s := t.Clock()
	return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0
}

// ExpandDate turns a single date-time criterion into one or two bound
// comparisons according to mode.
func ExpandDate(path Path, v time.Time, mode DateMode) (Node, error) {
	bound := func(op Operator, t time.Time) (Node, error) {
		return applyValue(path, op, reflect.ValueOf(t))
	}
	between := func(lo, hi time.Time) (Node, error) {
		lower, err := bound(OpGreaterOrEqual, lo)
		if err != nil {
			return nil, err
		}
		upper, err := bound(OpLessOrEqual, hi)
		if err != nil {
			return nil, err
		}
		return AllOf(lower, upper), nil
	}

	switch mode {
	case DateEqual:
		return between(v, v.Add(time.Minute))
	case DateGreaterThan:
		return bound(OpGreater, UpperBound(v))
	case DateGreaterOrEqual, DateRangeMode:
		return bound(OpGreaterOrEqual, v)
	case DateLessThan:
		return bound(OpLess, v)
	case DateLessOrEqual:
		return bound(OpLessOrEqual, UpperBound(v))
	}
	return between(v, EndOfDay(v))
}

// ExpandRange applies r to its target field on root, falling back to target
// when r names none. It returns nil when the target is missing or is not a
// date-time field, or when r has no bounds.
func ExpandRange(root reflect.Type, target string, r DateRange) (Node, error) {
	if r.Field != "" {
		target = r.Field
	}
	path, err := ResolvePath(root, target)
	if err != nil {
		return nil, nil
	}
	if category, _ := Classify(path.Type()); category != CategoryDateTime {
		return nil, nil
	}

	mode, _ := ParseDateMode(string(r.Mode))
	if mode != DateDefault && mode != DateRangeMode {
		if r.From == nil {
			return nil, nil
		}
		return ExpandDate(path, *r.From, mode)
	}

	var lower, upper Node
	if r.From != nil {
		if lower, err = applyValue(path, OpGreaterOrEqual, reflect.ValueOf(*r.From)); err != nil {
			return nil, err
		}
	}
	if r.To != nil {
		if upper, err = applyValue(path, OpLessOrEqual, reflect.ValueOf(UpperBound(*r.To))); err != nil {
			return nil, err
		}
	}
	return AllOf(lower, upper), nil
}
