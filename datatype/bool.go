package datatype

import "github.com/frappy-project/frappy-core/secoperr"

// Bool is the SECoP "bool" datatype.
type Bool struct{}

func (Bool) Validate(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		if b == 0 {
			return false, nil
		}
		if b == 1 {
			return true, nil
		}
	case int64:
		if b == 0 {
			return false, nil
		}
		if b == 1 {
			return true, nil
		}
	}
	return nil, wrongType("bool", "Bool", v)
}

func (b Bool) Import(wire any) (any, error) { return b.Validate(wire) }
func (Bool) Export(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, wrongType("bool", "Bool", v)
	}
	return b, nil
}

func (Bool) Describe() map[string]any { return map[string]any{"type": tagBool} }
func (Bool) Default() any             { return false }
func (Bool) CompatibleWith(other Datatype) bool {
	_, ok := other.(Bool)
	return ok
}

func (b Bool) FromString(s string) (any, error) {
	switch s {
	case "true", "True", "1", "on", "yes":
		return true, nil
	case "false", "False", "0", "off", "no":
		return false, nil
	default:
		return nil, secoperr.BadValue("cannot parse %q as bool", s)
	}
}
