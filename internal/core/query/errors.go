package query

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField        = errors.New("unknown field")
	ErrConversion          = errors.New("value conversion failed")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrInvalidSpec         = errors.New("filter spec must be a struct")
)

// FieldError ties a construction failure to the field that caused it.
type FieldError struct {
	Field string
	Type  string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: field %q on %s", e.Err, e.Field, e.Type)
	}
	return fmt.Sprintf("%s: field %q", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field, typ string, err error) *FieldError {
	return &FieldError{Field: field, Type: typ, Err: err}
}
