package datatype

import "github.com/frappy-project/frappy-core/secoperr"

// Canonical SECoP status codes (spec.md §4.A).
const (
	StatusDisabled    int64 = 0
	StatusIdle        int64 = 100
	StatusStandby     int64 = 130
	StatusPrepared    int64 = 150
	StatusWarn        int64 = 200
	StatusUnstable    int64 = 270
	StatusBusy        int64 = 300
	StatusPreparing   int64 = 340
	StatusRamping     int64 = 370
	StatusStabilizing int64 = 380
	StatusFinalizing  int64 = 390
	StatusError       int64 = 400
	StatusUnknown     int64 = 401
)

// StatusCodeEnum is the canonical status-code Enum, shared by every
// Status datatype instance built by NewStatus.
var StatusCodeEnum = mustEnum("StatusCode", map[string]int64{
	"DISABLED":    StatusDisabled,
	"IDLE":        StatusIdle,
	"STANDBY":     StatusStandby,
	"PREPARED":    StatusPrepared,
	"WARN":        StatusWarn,
	"UNSTABLE":    StatusUnstable,
	"BUSY":        StatusBusy,
	"PREPARING":   StatusPreparing,
	"RAMPING":     StatusRamping,
	"STABILIZING": StatusStabilizing,
	"FINALIZING":  StatusFinalizing,
	"ERROR":       StatusError,
	"UNKNOWN":     StatusUnknown,
}, []string{
	"DISABLED", "IDLE", "STANDBY", "PREPARED", "WARN", "UNSTABLE",
	"BUSY", "PREPARING", "RAMPING", "STABILIZING", "FINALIZING",
	"ERROR", "UNKNOWN",
})

func mustEnum(name string, members map[string]int64, order []string) Enum {
	e, err := NewEnum(name, members, order)
	if err != nil {
		panic(err)
	}
	return e
}

// Status is a Tuple specialisation: (code int, text string). Code
// ranges are significant (spec.md §4.A): "driving" when
// 300 <= code < 390, "busy" when 300 <= code < 400.
type Status struct {
	tuple Tuple
}

// NewStatus builds the canonical Status datatype.
func NewStatus() Status {
	return Status{tuple: Tuple{Elements: []Datatype{StatusCodeEnum, String{}}}}
}

func (s Status) Validate(v any) (any, error) { return s.tuple.Validate(v) }
func (s Status) Import(wire any) (any, error) { return s.tuple.Import(wire) }
func (s Status) Export(v any) (any, error)    { return s.tuple.Export(v) }
func (s Status) Describe() map[string]any     { return s.tuple.Describe() }
func (s Status) Default() any                 { return []any{"IDLE", ""} }
func (s Status) CompatibleWith(other Datatype) bool {
	os, ok := other.(Status)
	if !ok {
		return false
	}
	return s.tuple.CompatibleWith(os.tuple)
}
func (s Status) FromString(str string) (any, error) { return s.tuple.FromString(str) }

// Code extracts the numeric status code from a validated Status value.
func Code(v any) (int64, error) {
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		return 0, secoperr.BadValue("not a status value: %v", v)
	}
	label, ok := items[0].(string)
	if !ok {
		return 0, secoperr.BadValue("status code is not a label: %v", items[0])
	}
	n, ok := StatusCodeEnum.Value(label)
	if !ok {
		return 0, secoperr.BadValue("unknown status code label %q", label)
	}
	return n, nil
}

// Text extracts the status message from a validated Status value.
func Text(v any) (string, error) {
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		return "", secoperr.BadValue("not a status value: %v", v)
	}
	s, ok := items[1].(string)
	if !ok {
		return "", secoperr.BadValue("status text is not a string: %v", items[1])
	}
	return s, nil
}

// MakeStatus builds a Status value from a label and text; it does not
// validate the label.
func MakeStatus(label, text string) []any {
	return []any{label, text}
}

// IsBusyCode reports whether code is in the "busy" range
// (300 <= code < 400), per spec.md invariant 5.
func IsBusyCode(code int64) bool { return code >= StatusBusy && code < 400 }

// IsDrivingCode reports whether code is in the "driving" range
// (300 <= code < 390).
func IsDrivingCode(code int64) bool { return code >= StatusBusy && code < 390 }
