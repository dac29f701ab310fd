package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/baseplate/querykit/internal/core/query"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(msgs, "; ")
}

// Validator checks loosely typed documents against JSON schemas. Schemas
// derived from filter types are compiled once per type.
type Validator struct {
	schemas sync.Map // reflect.Type -> *gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateFilter checks data against the schema of the filter type spec.
func (v *Validator) ValidateFilter(data map[string]any, spec reflect.Type) error {
	compiled, err := v.filterSchema(spec)
	if err != nil {
		return err
	}
	return validate(compiled, data)
}

func (v *Validator) filterSchema(spec reflect.Type) (*gojsonschema.Schema, error) {
	if cached, ok := v.schemas.Load(spec); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	schemaJSON, err := json.Marshal(query.Schema(spec))
	if err != nil {
		return nil, err
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, err
	}
	actual, _ := v.schemas.LoadOrStore(spec, compiled)
	return actual.(*gojsonschema.Schema), nil
}

func validate(schema *gojsonschema.Schema, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(dataJSON))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var validationErrors []ValidationError
		for _, desc := range result.Errors() {
			validationErrors = append(validationErrors, ValidationError{
				Field:   desc.Field(),
				Message: desc.Description(),
			})
		}
		return &ValidationErrors{Errors: validationErrors}
	}

	return nil
}

func IsValidationError(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

func GetValidationErrors(err error) *ValidationErrors {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
