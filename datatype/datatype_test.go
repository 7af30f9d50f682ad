package datatype

import (
	"testing"

	"github.com/frappy-project/frappy-core/secoperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumRoundTrip_S1(t *testing.T) {
	e, err := NewEnum("TestEnum", map[string]int64{"IDLE": 100, "BUSY": 300}, []string{"IDLE", "BUSY"})
	require.NoError(t, err)

	wire, err := e.Export("BUSY")
	require.NoError(t, err)
	assert.Equal(t, int64(300), wire)

	mem, err := e.Import(int64(300))
	require.NoError(t, err)
	assert.Equal(t, "BUSY", mem)

	_, err = e.Validate("busy")
	require.Error(t, err)
	se, ok := secoperr.As(err)
	require.True(t, ok)
	assert.Equal(t, secoperr.KindBadValue, se.Kind)
}

func TestScaledWrite_S2(t *testing.T) {
	s := Scaled{Scale: 0.01, Min: 0, Max: 100}
	v, err := s.Validate(1.234)
	require.NoError(t, err)
	assert.InDelta(t, 1.23, v.(float64), 1e-9)

	wire, err := s.Export(v)
	require.NoError(t, err)
	assert.Equal(t, int64(123), wire)
}

func TestFloatImportExportRoundTrip(t *testing.T) {
	f := Float{Min: -10, Max: 10}
	for _, v := range []float64{-10, 0, 3.5, 10} {
		wire, err := f.Export(v)
		require.NoError(t, err)
		mem, err := f.Import(wire)
		require.NoError(t, err)
		assert.Equal(t, v, mem)
	}
}

func TestFloatToleranceClampsWithinEpsilon(t *testing.T) {
	f := Float{Min: 0, Max: 10, AbsoluteResolution: 0.5}
	v, err := f.Validate(10.3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	_, err = f.Validate(11.0)
	require.Error(t, err)
}

func TestArrayValidateBounds(t *testing.T) {
	a := Array{Element: Int{}, MinLen: 1, MaxLen: 2}
	_, err := a.Validate([]any{})
	require.Error(t, err)

	v, err := a.Validate([]any{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)

	_, err = a.Validate([]any{int64(1), int64(2), int64(3)})
	require.Error(t, err)
}

func TestStructRequiresNonOptionalMembers(t *testing.T) {
	s := Struct{
		Members:  map[string]Datatype{"a": Int{}, "b": String{}},
		Optional: map[string]bool{"b": true},
	}
	v, err := s.Validate(map[string]any{"a": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1)}, v)

	_, err = s.Validate(map[string]any{"b": "x"})
	require.Error(t, err)
}

func TestStatusBusyAndDrivingRanges(t *testing.T) {
	assert.True(t, IsBusyCode(datatypeStatusBusy()))
	assert.True(t, IsDrivingCode(StatusRamping))
	assert.True(t, IsDrivingCode(StatusStabilizing))
	assert.True(t, IsBusyCode(StatusStabilizing))
	assert.False(t, IsBusyCode(StatusIdle))
}

func datatypeStatusBusy() int64 { return StatusBusy }

func TestLimitInvariant(t *testing.T) {
	l := Limit{Bound: Float{}}
	_, err := l.Validate(map[string]any{"lower": 5.0, "upper": 1.0})
	require.Error(t, err)

	v, err := l.Validate(map[string]any{"lower": 1.0, "upper": 5.0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.(map[string]any)["lower"])
}

func TestCommandDescribe(t *testing.T) {
	c := Command{Argument: Float{}, Result: Bool{}}
	d := c.Describe()
	assert.Equal(t, "command", d["type"])
	assert.NotNil(t, d["argument"])
	assert.NotNil(t, d["result"])
}

func TestBlobBase64RoundTrip(t *testing.T) {
	b := Blob{}
	wire, err := b.Export([]byte("hello"))
	require.NoError(t, err)
	mem, err := b.Import(wire)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), mem)
}
