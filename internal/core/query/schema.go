package query

import "reflect"

// Schema describes the JSON form of a filter spec type, keyed by json name.
// The result is a JSON-schema document usable with any draft-4 validator.
func Schema(spec reflect.Type) map[string]any {
	properties := map[string]any{}
	for _, d := range Describe(spec) {
		if d.Skip {
			continue
		}
		prop := fieldSchema(d)
		if prop == nil {
			continue
		}
		name := d.JSONName
		if name == "" {
			name = d.Name
		}
		properties[name] = prop
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

var dateModeNames = []any{"", "eq", "gt", "gte", "lt", "lte", "r"}

func fieldSchema(d FieldDescriptor) map[string]any {
	if d.Type == dateModesType {
		return map[string]any{
			"type":  []any{"array", "string", "null"},
			"items": map[string]any{"type": "string", "enum": dateModeNames},
		}
	}

	var prop map[string]any
	base, _ := Indirect(d.Type)
	switch d.Category {
	case CategoryString:
		prop = typed("string")
	case CategoryBoolean:
		prop = typed("boolean")
	case CategoryInteger:
		prop = typed("integer")
	case CategoryDecimal:
		if base == decimalType {
			prop = typed("number", "string")
		} else {
			prop = typed("number")
		}
	case CategoryIdentifier:
		prop = typed("string")
		prop["format"] = "uuid"
	case CategoryDateTime:
		prop = typed("string")
		prop["minLength"] = 1
	case CategoryEnum:
		prop = typed("integer", "string")
	case CategoryDateRange:
		if base == dateRangesType {
			prop = typed("array", "string")
			prop["items"] = dateRangeSchema()
		} else {
			prop = dateRangeSchema()
		}
	default:
		return nil
	}

	if d.Nullable {
		types := prop["type"]
		switch t := types.(type) {
		case string:
			prop["type"] = []any{t, "null"}
		case []any:
			prop["type"] = append(t, "null")
		}
	}
	return prop
}

func typed(types ...string) map[string]any {
	if len(types) == 1 {
		return map[string]any{"type": types[0]}
	}
	list := make([]any, len(types))
	for i, t := range types {
		list[i] = t
	}
	return map[string]any{"type": list}
}

func dateRangeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": typed("string"),
			"from":  typed("string", "null"),
			"to":    typed("string", "null"),
			"mode":  map[string]any{"type": "string", "enum": dateModeNames},
		},
		"additionalProperties": false,
	}
}
