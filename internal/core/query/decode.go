package query

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
)

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// Decode fills the filter spec pointed to by dst from a loosely typed map,
// such as a decoded JSON object. Keys match fields the same way filter
// fields match source fields. String values are converted with the literal
// rules of the operator applier, so dates may omit the time of day.
func Decode(values map[string]any, dst any) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() || dv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: decode target must be a non-nil struct pointer", ErrInvalidSpec)
	}
	sv := dv.Elem()

	for key, raw := range values {
		d, ok := Lookup(sv.Type(), key)
		if !ok || d.Skip {
			return fieldError(key, typeName(sv.Type()), ErrUnknownField)
		}
		if raw == nil {
			continue
		}
		fv, err := sv.FieldByIndexErr(d.Index)
		if err != nil {
			return fieldError(key, typeName(sv.Type()), err)
		}
		if err := decodeValue(fv, d, raw); err != nil {
			return fieldError(d.Name, typeName(sv.Type()), err)
		}
	}
	return nil
}

func decodeValue(fv reflect.Value, d FieldDescriptor, raw any) error {
	target := fv
	if fv.Kind() == reflect.Pointer {
		target = reflect.New(fv.Type().Elem()).Elem()
	}

	if s, ok := raw.(string); ok {
		if err := decodeString(target, d, s); err != nil {
			return err
		}
	} else {
		b, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConversion, err)
		}
		if err := json.Unmarshal(b, target.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %v", ErrConversion, err)
		}
	}

	if fv.Kind() == reflect.Pointer {
		fv.Set(target.Addr())
	}
	return nil
}

func decodeString(target reflect.Value, d FieldDescriptor, s string) error {
	switch target.Type() {
	case dateModesType:
		target.Set(reflect.ValueOf(ParseDateModes(s)))
		return nil
	case dateRangesType:
		ranges, err := ParseDateRanges(s)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(ranges))
		return nil
	case timeType:
		t, err := ParseTime(s)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(t))
		return nil
	}

	if d.Category == CategoryEnum {
		if v, err := ConvertLiteral(target.Type(), s); err == nil {
			target.Set(v)
			return nil
		}
	}
	if reflect.PointerTo(target.Type()).Implements(textUnmarshalerType) {
		if err := target.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return fmt.Errorf("%w: %v", ErrConversion, err)
		}
		return nil
	}
	v, err := ConvertLiteral(target.Type(), s)
	if err != nil {
		return err
	}
	target.Set(v)
	return nil
}
