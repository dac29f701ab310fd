package query

import (
	"reflect"
	"strings"
)

// Segment is one resolved member access.
type Segment struct {
	Name     string // Go field name
	JSONName string
	Index    []int
	Type     reflect.Type
}

// Path is a resolved chain of member accesses starting at Root.
type Path struct {
	Root     reflect.Type
	Segments []Segment
}

// ResolvePath resolves a dotted field name against root. The prefix is
// resolved first so every segment is validated against its own declared type.
func ResolvePath(root reflect.Type, name string) (Path, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Path{}, fieldError(name, typeName(root), ErrUnknownField)
	}

	if i := strings.LastIndex(name, "."); i >= 0 {
		prefix, err := ResolvePath(root, name[:i])
		if err != nil {
			return Path{}, err
		}
		owner, _ := Indirect(prefix.Type())
		seg, err := resolveSegment(owner, name[i+1:])
		if err != nil {
			return Path{}, err
		}
		return Path{Root: root, Segments: append(append([]Segment{}, prefix.Segments...), seg)}, nil
	}

	base, _ := Indirect(root)
	seg, err := resolveSegment(base, name)
	if err != nil {
		return Path{}, err
	}
	return Path{Root: root, Segments: []Segment{seg}}, nil
}

func resolveSegment(owner reflect.Type, name string) (Segment, error) {
	if owner.Kind() != reflect.Struct {
		return Segment{}, fieldError(name, typeName(owner), ErrUnknownField)
	}
	d, ok := Lookup(owner, name)
	if !ok {
		return Segment{}, fieldError(name, typeName(owner), ErrUnknownField)
	}
	return Segment{Name: d.Name, JSONName: d.JSONName, Index: d.Index, Type: d.Type}, nil
}

// Type is the declared type of the terminal segment.
func (p Path) Type() reflect.Type {
	if len(p.Segments) == 0 {
		return p.Root
	}
	return p.Segments[len(p.Segments)-1].Type
}

// Len is the number of segments.
func (p Path) Len() int {
	return len(p.Segments)
}

// Prefix returns the path made of the first n segments.
func (p Path) Prefix(n int) Path {
	return Path{Root: p.Root, Segments: p.Segments[:n]}
}

func (p Path) String() string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	return strings.Join(names, ".")
}

// Get walks the path on v. It returns false when an intermediate pointer is
// nil; the terminal value itself may still be a nil pointer.
func (p Path) Get(v reflect.Value) (reflect.Value, bool) {
	for _, seg := range p.Segments {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		f, err := v.FieldByIndexErr(seg.Index)
		if err != nil {
			return reflect.Value{}, false
		}
		v = f
	}
	return v, true
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	base, _ := Indirect(t)
	return base.String()
}
