// Package datatype implements the SECoP type system: validation,
// JSON import/export, textual parsing, and self-description for every
// wire datatype named in spec.md §3/§4.A.
//
// Datatype is an interface rather than a tagged union — the idiomatic
// Go rendition of the reference implementation's class hierarchy.
// Value is the in-memory representation after Validate/Import: one of
// bool, int64, float64, string, []byte, []any, map[string]any,
// according to the concrete Datatype.
package datatype

import (
	"encoding/json"

	"github.com/frappy-project/frappy-core/secoperr"
)

// Datatype is implemented by every SECoP type. Implementations must be
// safe for concurrent use by multiple goroutines (they are immutable
// class-level descriptors shared across module instances).
type Datatype interface {
	// Validate coerces and checks v, returning the canonical in-memory
	// value or a *secoperr.Error (WrongType, RangeError or BadValue).
	Validate(v any) (any, error)

	// Import converts a decoded-JSON wire value into the in-memory
	// value (e.g. scaled-integer -> float64, enum-integer -> label).
	Import(wire any) (any, error)

	// Export converts an in-memory value into its wire (JSON-ready)
	// representation.
	Export(v any) (any, error)

	// Describe returns the "datainfo" JSON object for this datatype,
	// e.g. {"type":"double","min":0,"max":100}.
	Describe() map[string]any

	// Default returns the zero value appropriate for this datatype.
	Default() any

	// CompatibleWith reports whether every value representable by self
	// can also be represented by other (spec.md §4.A "compatible").
	CompatibleWith(other Datatype) bool

	// FromString parses a user-facing textual literal (config values,
	// CLI arguments) into an in-memory value, then validates it.
	FromString(s string) (any, error)
}

// DescribeJSON marshals a Datatype's descriptor to JSON, mainly for tests
// and logging.
func DescribeJSON(d Datatype) ([]byte, error) {
	return json.Marshal(d.Describe())
}

// typeTag is the "type" discriminator used in every Describe() map and
// on the wire (spec.md §6).
const (
	tagBool   = "bool"
	tagInt    = "int"
	tagDouble = "double"
	tagScaled = "scaled"
	tagEnum   = "enum"
	tagString = "string"
	tagBlob   = "blob"
	tagArray  = "array"
	tagTuple  = "tuple"
	tagStruct = "struct"
	tagCmd    = "command"
	tagLimit  = "limit"
)

// wrongType builds a consistent WrongType error for a datatype's
// Validate implementations.
func wrongType(want, name string, v any) error {
	return secoperr.WrongType("expected %s, got %T for %s", want, v, name)
}

// asFloat accepts ints or floats (spec.md "Numbers accept ints and
// floats"), rejecting everything else.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// asInt accepts any value that is exactly representable as an integer.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func merge(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
