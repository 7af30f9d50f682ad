package datatype

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/frappy-project/frappy-core/secoperr"
)

// String is the SECoP "string" datatype.
type String struct {
	MinChars, MaxChars int
	UTF8               bool
}

func (s String) Validate(v any) (any, error) {
	str, ok := v.(string)
	if !ok {
		return nil, wrongType("string", "String", v)
	}
	if s.UTF8 && !utf8.ValidString(str) {
		return nil, secoperr.BadValue("string is not valid utf-8")
	}
	n := utf8.RuneCountInString(str)
	if s.MinChars > 0 && n < s.MinChars {
		return nil, secoperr.RangeError("string too short: %d < %d", n, s.MinChars)
	}
	if s.MaxChars > 0 && n > s.MaxChars {
		return nil, secoperr.RangeError("string too long: %d > %d", n, s.MaxChars)
	}
	return str, nil
}

func (s String) Import(wire any) (any, error) { return s.Validate(wire) }
func (s String) Export(v any) (any, error)    { return s.Validate(v) }

func (s String) Describe() map[string]any {
	d := map[string]any{"type": tagString}
	if s.MinChars > 0 {
		d["minchars"] = s.MinChars
	}
	if s.MaxChars > 0 {
		d["maxchars"] = s.MaxChars
	}
	return d
}

func (s String) Default() any { return "" }

func (s String) CompatibleWith(other Datatype) bool {
	os, ok := other.(String)
	if !ok {
		return false
	}
	return (os.MaxChars == 0 || os.MaxChars >= s.MaxChars) && os.MinChars <= s.MinChars
}

func (s String) FromString(str string) (any, error) { return s.Validate(str) }

// Blob is the SECoP "blob" datatype: arbitrary bytes, base64 on the
// wire (spec.md §4.A).
type Blob struct {
	MinBytes, MaxBytes int
}

func (b Blob) Validate(v any) (any, error) {
	bs, ok := v.([]byte)
	if !ok {
		return nil, wrongType("[]byte", "Blob", v)
	}
	if b.MinBytes > 0 && len(bs) < b.MinBytes {
		return nil, secoperr.RangeError("blob too short: %d < %d", len(bs), b.MinBytes)
	}
	if b.MaxBytes > 0 && len(bs) > b.MaxBytes {
		return nil, secoperr.RangeError("blob too long: %d > %d", len(bs), b.MaxBytes)
	}
	return bs, nil
}

// Import decodes a base64 wire string into raw bytes.
func (b Blob) Import(wire any) (any, error) {
	str, ok := wire.(string)
	if !ok {
		return nil, wrongType("base64 string", "Blob", wire)
	}
	raw, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return nil, secoperr.BadValue("blob: invalid base64: %v", err)
	}
	return b.Validate(raw)
}

// Export encodes raw bytes as a base64 wire string.
func (b Blob) Export(v any) (any, error) {
	bs, ok := v.([]byte)
	if !ok {
		return nil, wrongType("[]byte", "Blob", v)
	}
	return base64.StdEncoding.EncodeToString(bs), nil
}

func (b Blob) Describe() map[string]any {
	d := map[string]any{"type": tagBlob}
	if b.MinBytes > 0 {
		d["minbytes"] = b.MinBytes
	}
	if b.MaxBytes > 0 {
		d["maxbytes"] = b.MaxBytes
	}
	return d
}

func (b Blob) Default() any { return []byte{} }

func (b Blob) CompatibleWith(other Datatype) bool {
	ob, ok := other.(Blob)
	if !ok {
		return false
	}
	return (ob.MaxBytes == 0 || ob.MaxBytes >= b.MaxBytes) && ob.MinBytes <= b.MinBytes
}

func (b Blob) FromString(s string) (any, error) { return b.Validate([]byte(s)) }
