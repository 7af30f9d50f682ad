package datatype

import (
	"sort"
	"strconv"

	"github.com/frappy-project/frappy-core/secoperr"
)

// Enum is the SECoP "enum" datatype: an ordered set of (label, value)
// members. spec.md §4.A: "Inheriting an Enum extends with unique
// labels; re-using a label must yield the previously assigned integer."
type Enum struct {
	Name    string
	members map[string]int64
	order   []string
}

// NewEnum builds an Enum from a name and an ordered label->value
// mapping. As in Extend, a label listed twice must carry the same
// value; two different labels may share one value.
func NewEnum(name string, members map[string]int64, order []string) (Enum, error) {
	e := Enum{Name: name, members: map[string]int64{}, order: nil}
	for _, label := range order {
		v, ok := members[label]
		if !ok {
			return Enum{}, secoperr.ProgrammingError("enum %s: order references unknown label %q", name, label)
		}
		if err := e.add(label, v); err != nil {
			return Enum{}, err
		}
	}
	return e, nil
}

func (e *Enum) add(label string, value int64) error {
	if existing, ok := e.members[label]; ok {
		if existing != value {
			return secoperr.ProgrammingError("enum %s: label %q already assigned %d, cannot reassign %d", e.Name, label, existing, value)
		}
		return nil // re-declaring with the same value is a no-op
	}
	e.members[label] = value
	e.order = append(e.order, label)
	return nil
}

// Extend returns a copy of e with additional members appended;
// labels colliding with an existing one must carry the same integer
// (spec.md §4.A), otherwise this is a ProgrammingError.
func (e Enum) Extend(name string, extra map[string]int64, order []string) (Enum, error) {
	out := Enum{Name: name, members: map[string]int64{}, order: append([]string{}, e.order...)}
	for l, v := range e.members {
		out.members[l] = v
	}
	for _, label := range order {
		v, ok := extra[label]
		if !ok {
			return Enum{}, secoperr.ProgrammingError("enum %s: order references unknown label %q", name, label)
		}
		if err := out.add(label, v); err != nil {
			return Enum{}, err
		}
	}
	return out, nil
}

// Label returns the canonical label for a numeric value, if any.
func (e Enum) Label(value int64) (string, bool) {
	for _, l := range e.order {
		if e.members[l] == value {
			return l, true
		}
	}
	return "", false
}

// Value returns the numeric value for a label, if any.
func (e Enum) Value(label string) (int64, bool) {
	v, ok := e.members[label]
	return v, ok
}

// Validate accepts a label (string) or an integer value and returns the
// canonical label (spec.md §4.A "enum accepts label or integer and
// returns the canonical member").
func (e Enum) Validate(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if _, ok := e.members[x]; ok {
			return x, nil
		}
		return nil, secoperr.BadValue("enum %s: unknown label %q", e.Name, x)
	default:
		n, ok := asInt(v)
		if !ok {
			return nil, wrongType("enum label or int", "Enum", v)
		}
		label, ok := e.Label(n)
		if !ok {
			return nil, secoperr.BadValue("enum %s: unknown value %d", e.Name, n)
		}
		return label, nil
	}
}

func (e Enum) Import(wire any) (any, error) { return e.Validate(wire) }

// Export returns the wire-side integer for an in-memory label.
func (e Enum) Export(v any) (any, error) {
	label, ok := v.(string)
	if !ok {
		return nil, wrongType("string label", "Enum", v)
	}
	n, ok := e.members[label]
	if !ok {
		return nil, secoperr.BadValue("enum %s: unknown label %q", e.Name, label)
	}
	return n, nil
}

func (e Enum) Describe() map[string]any {
	members := make(map[string]int64, len(e.order))
	for _, l := range e.order {
		members[l] = e.members[l]
	}
	return map[string]any{"type": tagEnum, "members": members}
}

func (e Enum) Default() any {
	if len(e.order) == 0 {
		return ""
	}
	return e.order[0]
}

func (e Enum) CompatibleWith(other Datatype) bool {
	oe, ok := other.(Enum)
	if !ok {
		return false
	}
	for l, v := range e.members {
		ov, ok := oe.members[l]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

func (e Enum) FromString(s string) (any, error) {
	if _, ok := e.members[s]; ok {
		return e.Validate(s)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return e.Validate(n)
	}
	return nil, secoperr.BadValue("enum %s: cannot parse %q", e.Name, s)
}

// Members returns the ordered (label, value) pairs, for describe/debug.
func (e Enum) Members() []struct {
	Label string
	Value int64
} {
	out := make([]struct {
		Label string
		Value int64
	}, len(e.order))
	for i, l := range e.order {
		out[i] = struct {
			Label string
			Value int64
		}{l, e.members[l]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
