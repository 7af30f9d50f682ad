package datatype

import "github.com/frappy-project/frappy-core/secoperr"

// Limit is the SECoP "limit" datatype: a (lower, upper) pair with the
// invariant lower <= upper (spec.md §3).
type Limit struct {
	Bound Datatype // the datatype of lower/upper, e.g. Float
}

func (l Limit) Validate(v any) (any, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, wrongType("limit", "Limit", v)
	}
	lo, ok := m["lower"]
	if !ok {
		return nil, secoperr.BadValue("limit missing 'lower'")
	}
	hi, ok := m["upper"]
	if !ok {
		return nil, secoperr.BadValue("limit missing 'upper'")
	}
	vlo, err := l.Bound.Validate(lo)
	if err != nil {
		return nil, secoperr.BadValue("limit.lower: %v", err)
	}
	vhi, err := l.Bound.Validate(hi)
	if err != nil {
		return nil, secoperr.BadValue("limit.upper: %v", err)
	}
	flo, _ := asFloat(vlo)
	fhi, _ := asFloat(vhi)
	if flo > fhi {
		return nil, secoperr.BadValue("limit: lower (%v) must be <= upper (%v)", vlo, vhi)
	}
	return map[string]any{"lower": vlo, "upper": vhi}, nil
}

func (l Limit) Import(wire any) (any, error) {
	m, err := toMap(wire)
	if err != nil {
		return nil, wrongType("limit", "Limit", wire)
	}
	lo, err := l.Bound.Import(m["lower"])
	if err != nil {
		return nil, err
	}
	hi, err := l.Bound.Import(m["upper"])
	if err != nil {
		return nil, err
	}
	return l.Validate(map[string]any{"lower": lo, "upper": hi})
}

func (l Limit) Export(v any) (any, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, wrongType("limit", "Limit", v)
	}
	lo, err := l.Bound.Export(m["lower"])
	if err != nil {
		return nil, err
	}
	hi, err := l.Bound.Export(m["upper"])
	if err != nil {
		return nil, err
	}
	return map[string]any{"lower": lo, "upper": hi}, nil
}

func (l Limit) Describe() map[string]any {
	return map[string]any{"type": tagLimit, "members": l.Bound.Describe()}
}

func (l Limit) Default() any {
	return map[string]any{"lower": l.Bound.Default(), "upper": l.Bound.Default()}
}

func (l Limit) CompatibleWith(other Datatype) bool {
	ol, ok := other.(Limit)
	if !ok {
		return false
	}
	return l.Bound.CompatibleWith(ol.Bound)
}

func (l Limit) FromString(s string) (any, error) {
	m, err := Struct{Members: map[string]Datatype{"lower": l.Bound, "upper": l.Bound}}.FromString(s)
	if err != nil {
		return nil, err
	}
	return l.Validate(m)
}
