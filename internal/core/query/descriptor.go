package query

import (
	"reflect"
	"strings"
	"sync"
)

// FieldDescriptor is the classified view of one exported struct field.
type FieldDescriptor struct {
	Name     string
	JSONName string
	Index    []int
	Type     reflect.Type
	Category Category
	Nullable bool

	// Target, Operator and DateMode come from the `query` struct tag.
	Target   string
	Operator string
	DateMode DateMode
	Skip     bool
}

// Matches reports whether name refers to this field, by Go name or json name.
func (d FieldDescriptor) Matches(name string) bool {
	name = strings.TrimSpace(name)
	if strings.EqualFold(d.Name, name) {
		return true
	}
	return d.JSONName != "" && strings.EqualFold(d.JSONName, name)
}

// TargetPath returns the source path a filter field is applied to.
func (d FieldDescriptor) TargetPath() string {
	if d.Target != "" {
		return d.Target
	}
	return d.Name
}

var descriptorCache sync.Map // reflect.Type -> []FieldDescriptor

// Describe returns the descriptor table of a struct type (pointers are
// unwrapped). Tables are computed once per type.
func Describe(t reflect.Type) []FieldDescriptor {
	t, _ = Indirect(t)
	if t.Kind() != reflect.Struct {
		return nil
	}
	if cached, ok := descriptorCache.Load(t); ok {
		return cached.([]FieldDescriptor)
	}

	var fields []FieldDescriptor
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		if f.Anonymous {
			if base, _ := Indirect(f.Type); base.Kind() == reflect.Struct {
				continue
			}
		}

		category, nullable := Classify(f.Type)
		d := FieldDescriptor{
			Name:     f.Name,
			JSONName: jsonName(f.Tag.Get("json")),
			Index:    f.Index,
			Type:     f.Type,
			Category: category,
			Nullable: nullable || isNilable(f.Type.Kind()),
		}
		parseQueryTag(f.Tag.Get("query"), &d)
		fields = append(fields, d)
	}

	actual, _ := descriptorCache.LoadOrStore(t, fields)
	return actual.([]FieldDescriptor)
}

// Lookup finds a field by Go or json name, case-insensitively. Exact Go name
// matches win over case-insensitive ones.
func Lookup(t reflect.Type, name string) (FieldDescriptor, bool) {
	fields := Describe(t)
	for _, d := range fields {
		if d.Name == name {
			return d, true
		}
	}
	for _, d := range fields {
		if d.Matches(name) {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// parseQueryTag reads `query:"path,op=LIKE,mode=gte"` or `query:"-"`.
func parseQueryTag(tag string, d *FieldDescriptor) {
	if tag == "" {
		return
	}
	if tag == "-" {
		d.Skip = true
		return
	}
	parts := strings.Split(tag, ",")
	d.Target = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "op":
			d.Operator = strings.TrimSpace(value)
		case "mode":
			d.DateMode = DateMode(strings.TrimSpace(value))
		}
	}
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}
