package datatype

import (
	"strings"

	"github.com/frappy-project/frappy-core/secoperr"
)

// Array is the SECoP "array" datatype: a homogeneous sequence with
// optional length bounds.
type Array struct {
	Element        Datatype
	MinLen, MaxLen int
}

func (a Array) Validate(v any) (any, error) {
	items, err := toSlice(v)
	if err != nil {
		return nil, wrongType("array", "Array", v)
	}
	if a.MinLen > 0 && len(items) < a.MinLen {
		return nil, secoperr.RangeError("array too short: %d < %d", len(items), a.MinLen)
	}
	if a.MaxLen > 0 && len(items) > a.MaxLen {
		return nil, secoperr.RangeError("array too long: %d > %d", len(items), a.MaxLen)
	}
	out := make([]any, len(items))
	for i, it := range items {
		vv, err := a.Element.Validate(it)
		if err != nil {
			return nil, secoperr.BadValue("array[%d]: %v", i, err)
		}
		out[i] = vv
	}
	return out, nil
}

func (a Array) Import(wire any) (any, error) {
	items, err := toSlice(wire)
	if err != nil {
		return nil, wrongType("array", "Array", wire)
	}
	out := make([]any, len(items))
	for i, it := range items {
		vv, err := a.Element.Import(it)
		if err != nil {
			return nil, secoperr.BadValue("array[%d]: %v", i, err)
		}
		out[i] = vv
	}
	return a.Validate(out)
}

func (a Array) Export(v any) (any, error) {
	items, err := toSlice(v)
	if err != nil {
		return nil, wrongType("array", "Array", v)
	}
	out := make([]any, len(items))
	for i, it := range items {
		vv, err := a.Element.Export(it)
		if err != nil {
			return nil, secoperr.BadValue("array[%d]: %v", i, err)
		}
		out[i] = vv
	}
	return out, nil
}

func (a Array) Describe() map[string]any {
	d := map[string]any{"type": tagArray, "members": a.Element.Describe()}
	if a.MinLen > 0 {
		d["minlen"] = a.MinLen
	}
	if a.MaxLen > 0 {
		d["maxlen"] = a.MaxLen
	}
	return d
}

func (a Array) Default() any { return []any{} }

func (a Array) CompatibleWith(other Datatype) bool {
	oa, ok := other.(Array)
	if !ok {
		return false
	}
	return a.Element.CompatibleWith(oa.Element) && (oa.MaxLen == 0 || oa.MaxLen >= a.MaxLen)
}

func (a Array) FromString(s string) (any, error) {
	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	items := make([]any, len(parts))
	for i, p := range parts {
		v, err := a.Element.FromString(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return a.Validate(items)
}

// Tuple is the SECoP "tuple" datatype: a fixed-length heterogeneous
// sequence.
type Tuple struct {
	Elements []Datatype
}

func (t Tuple) Validate(v any) (any, error) {
	items, err := toSlice(v)
	if err != nil {
		return nil, wrongType("tuple", "Tuple", v)
	}
	if len(items) != len(t.Elements) {
		return nil, secoperr.BadValue("tuple expects %d elements, got %d", len(t.Elements), len(items))
	}
	out := make([]any, len(items))
	for i, it := range items {
		vv, err := t.Elements[i].Validate(it)
		if err != nil {
			return nil, secoperr.BadValue("tuple[%d]: %v", i, err)
		}
		out[i] = vv
	}
	return out, nil
}

func (t Tuple) Import(wire any) (any, error) {
	items, err := toSlice(wire)
	if err != nil {
		return nil, wrongType("tuple", "Tuple", wire)
	}
	if len(items) != len(t.Elements) {
		return nil, secoperr.BadValue("tuple expects %d elements, got %d", len(t.Elements), len(items))
	}
	out := make([]any, len(items))
	for i, it := range items {
		vv, err := t.Elements[i].Import(it)
		if err != nil {
			return nil, secoperr.BadValue("tuple[%d]: %v", i, err)
		}
		out[i] = vv
	}
	return out, nil
}

func (t Tuple) Export(v any) (any, error) {
	items, err := toSlice(v)
	if err != nil {
		return nil, wrongType("tuple", "Tuple", v)
	}
	if len(items) != len(t.Elements) {
		return nil, secoperr.BadValue("tuple expects %d elements, got %d", len(t.Elements), len(items))
	}
	out := make([]any, len(items))
	for i, it := range items {
		vv, err := t.Elements[i].Export(it)
		if err != nil {
			return nil, secoperr.BadValue("tuple[%d]: %v", i, err)
		}
		out[i] = vv
	}
	return out, nil
}

func (t Tuple) Describe() map[string]any {
	members := make([]map[string]any, len(t.Elements))
	for i, e := range t.Elements {
		members[i] = e.Describe()
	}
	return map[string]any{"type": tagTuple, "members": members}
}

func (t Tuple) Default() any {
	out := make([]any, len(t.Elements))
	for i, e := range t.Elements {
		out[i] = e.Default()
	}
	return out
}

func (t Tuple) CompatibleWith(other Datatype) bool {
	ot, ok := other.(Tuple)
	if !ok || len(ot.Elements) != len(t.Elements) {
		return false
	}
	for i := range t.Elements {
		if !t.Elements[i].CompatibleWith(ot.Elements[i]) {
			return false
		}
	}
	return true
}

func (t Tuple) FromString(s string) (any, error) {
	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	if len(parts) != len(t.Elements) {
		return nil, secoperr.BadValue("tuple expects %d elements, got %d", len(t.Elements), len(parts))
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		v, err := t.Elements[i].FromString(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return t.Validate(out)
}

// Struct is the SECoP "struct" datatype: a named-member record with an
// optional subset of members.
type Struct struct {
	Members  map[string]Datatype
	Optional map[string]bool
	Order    []string // declaration order; Describe and FromString do not read it
}

func (s Struct) Validate(v any) (any, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, wrongType("struct", "Struct", v)
	}
	out := make(map[string]any, len(s.Members))
	for name, dt := range s.Members {
		val, present := m[name]
		if !present {
			if s.Optional[name] {
				continue
			}
			return nil, secoperr.BadValue("struct missing required member %q", name)
		}
		vv, err := dt.Validate(val)
		if err != nil {
			return nil, secoperr.BadValue("struct.%s: %v", name, err)
		}
		out[name] = vv
	}
	for name := range m {
		if _, known := s.Members[name]; !known {
			return nil, secoperr.BadValue("struct: unknown member %q", name)
		}
	}
	return out, nil
}

func (s Struct) Import(wire any) (any, error) {
	m, err := toMap(wire)
	if err != nil {
		return nil, wrongType("struct", "Struct", wire)
	}
	raw := make(map[string]any, len(m))
	for name, dt := range s.Members {
		val, present := m[name]
		if !present {
			continue
		}
		vv, err := dt.Import(val)
		if err != nil {
			return nil, secoperr.BadValue("struct.%s: %v", name, err)
		}
		raw[name] = vv
	}
	return s.Validate(raw)
}

func (s Struct) Export(v any) (any, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, wrongType("struct", "Struct", v)
	}
	out := make(map[string]any, len(m))
	for name, val := range m {
		dt, ok := s.Members[name]
		if !ok {
			return nil, secoperr.BadValue("struct: unknown member %q", name)
		}
		vv, err := dt.Export(val)
		if err != nil {
			return nil, secoperr.BadValue("struct.%s: %v", name, err)
		}
		out[name] = vv
	}
	return out, nil
}

func (s Struct) Describe() map[string]any {
	members := make(map[string]any, len(s.Members))
	for name, dt := range s.Members {
		members[name] = dt.Describe()
	}
	d := map[string]any{"type": tagStruct, "members": members}
	if len(s.Optional) > 0 {
		opt := make([]string, 0, len(s.Optional))
		for name, isOpt := range s.Optional {
			if isOpt {
				opt = append(opt, name)
			}
		}
		d["optional"] = opt
	}
	return d
}

func (s Struct) Default() any {
	out := make(map[string]any, len(s.Members))
	for name, dt := range s.Members {
		if s.Optional[name] {
			continue
		}
		out[name] = dt.Default()
	}
	return out
}

func (s Struct) CompatibleWith(other Datatype) bool {
	os, ok := other.(Struct)
	if !ok {
		return false
	}
	for name, dt := range s.Members {
		odt, ok := os.Members[name]
		if !ok || !dt.CompatibleWith(odt) {
			return false
		}
	}
	return true
}

func (s Struct) FromString(str string) (any, error) {
	str = strings.TrimSpace(str)
	str = strings.TrimPrefix(strings.TrimSuffix(str, "}"), "{")
	parts, err := splitTopLevel(str)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any, len(parts))
	for _, p := range parts {
		kv := strings.SplitN(p, ":", 2)
		if len(kv) != 2 {
			return nil, secoperr.BadValue("struct literal: expected name:value, got %q", p)
		}
		name := strings.TrimSpace(kv[0])
		dt, ok := s.Members[name]
		if !ok {
			return nil, secoperr.BadValue("struct: unknown member %q", name)
		}
		v, err := dt.FromString(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, err
		}
		m[name] = v
	}
	return s.Validate(m)
}

// toSlice accepts only []any; any other type, including a concrete
// typed slice, is a BadValue.
func toSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case nil:
		return nil, secoperr.BadValue("nil is not a sequence")
	default:
		return nil, secoperr.BadValue("expected array, got %T", v)
	}
}

func toMap(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, secoperr.BadValue("expected struct/object, got %T", v)
	}
	return m, nil
}

// splitTopLevel splits a comma-separated literal on commas that are not
// nested inside {...} or [...] — the "small grammar" spec.md §4.A asks
// for composite from_string literals.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth < 0 {
				return nil, secoperr.BadValue("unbalanced braces in literal %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, secoperr.BadValue("unbalanced braces in literal %q", s)
	}
	last := strings.TrimSpace(s[start:])
	if last != "" || len(parts) > 0 {
		parts = append(parts, s[start:])
	}
	return parts, nil
}
