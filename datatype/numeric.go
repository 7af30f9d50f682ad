package datatype

import (
	"math"
	"strconv"

	"github.com/frappy-project/frappy-core/secoperr"
)

// Float is the SECoP "double" datatype: an IEEE-754 float with
// optional bounds, unit, printf-style format string, and tolerance
// parameters used when deciding whether an out-of-range value is
// still acceptable (spec.md §4.A numeric tolerance rule).
type Float struct {
	Min, Max           float64
	Unit               string
	FmtStr             string
	AbsoluteResolution float64
	RelativeResolution float64
}

func (f Float) epsilon(v float64) float64 {
	eps := f.AbsoluteResolution
	if rel := math.Abs(v) * f.RelativeResolution; rel > eps {
		eps = rel
	}
	return eps
}

func (f Float) Validate(v any) (any, error) {
	n, ok := asFloat(v)
	if !ok {
		return nil, wrongType("number", "Float", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, secoperr.BadValue("float value must be finite, got %v", n)
	}
	lo, hi := f.bounds()
	eps := f.epsilon(n)
	if n < lo-eps || n > hi+eps {
		return nil, secoperr.RangeError("value %v out of range [%v,%v]", n, lo, hi)
	}
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n, nil
}

func (f Float) bounds() (float64, float64) {
	lo, hi := f.Min, f.Max
	if lo == 0 && hi == 0 {
		return -math.MaxFloat64, math.MaxFloat64
	}
	return lo, hi
}

func (f Float) Import(wire any) (any, error) { return f.Validate(wire) }
func (f Float) Export(v any) (any, error) {
	n, ok := asFloat(v)
	if !ok {
		return nil, wrongType("number", "Float", v)
	}
	return n, nil
}

func (f Float) Describe() map[string]any {
	d := map[string]any{"type": tagDouble}
	lo, hi := f.bounds()
	if lo != -math.MaxFloat64 {
		d["min"] = lo
	}
	if hi != math.MaxFloat64 {
		d["max"] = hi
	}
	if f.Unit != "" {
		d["unit"] = f.Unit
	}
	if f.FmtStr != "" {
		d["fmtstr"] = f.FmtStr
	}
	if f.AbsoluteResolution != 0 {
		d["absolute_resolution"] = f.AbsoluteResolution
	}
	if f.RelativeResolution != 0 {
		d["relative_resolution"] = f.RelativeResolution
	}
	return d
}

func (f Float) Default() any { return 0.0 }

func (f Float) CompatibleWith(other Datatype) bool {
	of, ok := other.(Float)
	if !ok {
		return false
	}
	lo, hi := f.bounds()
	olo, ohi := of.bounds()
	return olo <= lo && ohi >= hi
}

func (f Float) FromString(s string) (any, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, secoperr.BadValue("cannot parse %q as float: %v", s, err)
	}
	return f.Validate(n)
}

// Int is the SECoP "int" datatype: an integer with optional bounds.
type Int struct {
	Min, Max int64
}

func (i Int) bounds() (int64, int64) {
	lo, hi := i.Min, i.Max
	if lo == 0 && hi == 0 {
		return math.MinInt64, math.MaxInt64
	}
	return lo, hi
}

func (i Int) Validate(v any) (any, error) {
	n, ok := asInt(v)
	if !ok {
		return nil, wrongType("integer", "Int", v)
	}
	lo, hi := i.bounds()
	if n < lo || n > hi {
		return nil, secoperr.RangeError("value %d out of range [%d,%d]", n, lo, hi)
	}
	return n, nil
}

func (i Int) Import(wire any) (any, error) { return i.Validate(wire) }
func (i Int) Export(v any) (any, error) {
	n, ok := asInt(v)
	if !ok {
		return nil, wrongType("integer", "Int", v)
	}
	return n, nil
}

func (i Int) Describe() map[string]any {
	d := map[string]any{"type": tagInt}
	lo, hi := i.bounds()
	if lo != math.MinInt64 {
		d["min"] = lo
	}
	if hi != math.MaxInt64 {
		d["max"] = hi
	}
	return d
}

func (i Int) Default() any { return int64(0) }

func (i Int) CompatibleWith(other Datatype) bool {
	oi, ok := other.(Int)
	if !ok {
		return false
	}
	lo, hi := i.bounds()
	olo, ohi := oi.bounds()
	return olo <= lo && ohi >= hi
}

func (i Int) FromString(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, secoperr.BadValue("cannot parse %q as int: %v", s, err)
	}
	return i.Validate(n)
}

// Scaled is a fixed-point float transported on the wire as an integer
// (value = wire * Scale). spec.md §4.A: "scaled integer values exactly
// representable modulo scale".
type Scaled struct {
	Scale    float64
	Min, Max float64
	Unit     string
}

func (s Scaled) Validate(v any) (any, error) {
	n, ok := asFloat(v)
	if !ok {
		return nil, wrongType("number", "Scaled", v)
	}
	lo, hi := s.bounds()
	eps := s.Scale
	if n < lo-eps || n > hi+eps {
		return nil, secoperr.RangeError("value %v out of range [%v,%v]", n, lo, hi)
	}
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return s.roundToScale(n), nil
}

func (s Scaled) bounds() (float64, float64) {
	if s.Min == 0 && s.Max == 0 {
		return -math.MaxFloat64, math.MaxFloat64
	}
	return s.Min, s.Max
}

// roundToScale rounds v to the nearest exact multiple of Scale using
// floor((v+scale/2)/scale)*scale, per spec.md §4.A import/export rule.
func (s Scaled) roundToScale(v float64) float64 {
	if s.Scale == 0 {
		return v
	}
	return math.Floor(v/s.Scale+0.5) * s.Scale
}

// Import divides the wire integer by Scale to get the in-memory float.
func (s Scaled) Import(wire any) (any, error) {
	n, ok := asInt(wire)
	if !ok {
		f, ok2 := asFloat(wire)
		if !ok2 {
			return nil, wrongType("integer", "Scaled", wire)
		}
		return s.Validate(f * s.Scale)
	}
	return s.Validate(float64(n) * s.Scale)
}

// Export multiplies by 1/Scale and rounds to the nearest wire integer.
func (s Scaled) Export(v any) (any, error) {
	n, ok := asFloat(v)
	if !ok {
		return nil, wrongType("number", "Scaled", v)
	}
	if s.Scale == 0 {
		return int64(math.Round(n)), nil
	}
	return int64(math.Floor(n/s.Scale + 0.5)), nil
}

func (s Scaled) Describe() map[string]any {
	d := map[string]any{"type": tagScaled, "scale": s.Scale}
	lo, hi := s.bounds()
	if lo != -math.MaxFloat64 {
		d["min"] = s.exportBound(lo)
	}
	if hi != math.MaxFloat64 {
		d["max"] = s.exportBound(hi)
	}
	if s.Unit != "" {
		d["unit"] = s.Unit
	}
	return d
}

func (s Scaled) exportBound(v float64) int64 {
	if s.Scale == 0 {
		return int64(math.Round(v))
	}
	return int64(math.Floor(v/s.Scale + 0.5))
}

func (s Scaled) Default() any { return 0.0 }

func (s Scaled) CompatibleWith(other Datatype) bool {
	os, ok := other.(Scaled)
	if !ok {
		return false
	}
	lo, hi := s.bounds()
	olo, ohi := os.bounds()
	return olo <= lo && ohi >= hi && os.Scale <= s.Scale
}

func (s Scaled) FromString(str string) (any, error) {
	n, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, secoperr.BadValue("cannot parse %q as scaled float: %v", str, err)
	}
	return s.Validate(n)
}
